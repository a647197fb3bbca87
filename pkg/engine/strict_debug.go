//go:build enginedebug

package engine

// strictTransitions turns an illegal status transition into a panic.
const strictTransitions = true
