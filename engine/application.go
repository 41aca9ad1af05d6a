package engine

import (
	"github.com/spaghettifunk/lumen/engine/config"
)

type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX int32
	// Window starting position y axis, if applicable.
	StartPosY int32
	// Window starting width, if applicable.
	StartWidth uint32
	// Window starting height, if applicable.
	StartHeight uint32
	// The application name used in windowing, if applicable.
	Name string
	// Path of the configuration file, watched for live changes.
	ConfigPath string
	Config     *config.Config
}

// NewApplicationConfig derives the window settings from cfg.
func NewApplicationConfig(cfg *config.Config, path string) *ApplicationConfig {
	return &ApplicationConfig{
		StartPosX:   cfg.Window.X,
		StartPosY:   cfg.Window.Y,
		StartWidth:  cfg.Window.Width,
		StartHeight: cfg.Window.Height,
		Name:        cfg.Window.Name,
		ConfigPath:  path,
		Config:      cfg,
	}
}
