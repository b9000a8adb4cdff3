// Package config provides configuration management for linkprobe.
package config
