//go:build !enginedebug

package engine

// strictTransitions is off in regular builds: an illegal transition is logged and returned.
const strictTransitions = false
