// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/ryxhub/flowengine/pkg/actions/httprequest"
	logaction "github.com/ryxhub/flowengine/pkg/actions/log"
	"github.com/ryxhub/flowengine/pkg/actions/passthrough"
	"github.com/ryxhub/flowengine/pkg/actions/transform"
	"github.com/ryxhub/flowengine/pkg/models"
	"github.com/ryxhub/flowengine/pkg/registry"
)

func registerNativeActions(reg *registry.Registry) {
	reg.RegisterAction(passthrough.NewActionFactory())
	reg.RegisterAction(httprequest.NewActionFactory())
	reg.RegisterAction(transform.NewActionFactory())
	reg.RegisterAction(logaction.NewActionFactory())
}

func registerDefaults(reg *registry.Registry) {
	reg.SetDefault(models.NodeTypeTrigger, "passthrough")
	reg.SetDefault(models.NodeTypeAgent, "http_request")
	reg.SetDefault(models.NodeTypeTool, "http_request")
	reg.SetDefault(models.NodeTypeOutput, "log")
}

// NewRegistry returns a registry with the built-in actions and a default action per node type.
func NewRegistry(log *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(log)

	registerNativeActions(reg)
	registerDefaults(reg)

	return reg
}
