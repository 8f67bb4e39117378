//go:build !darwin && !windows

package autostart

func enable(string, []string) error { return ErrUnsupported }

func disable() error { return ErrUnsupported }

func enabled() bool { return false }
