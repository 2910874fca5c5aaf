//go:build linux

package pointer

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/viamrobotics/evdev"
)

// Info describes one visible evdev device.
type Info struct {
	Path string
	Name string
}

// Enumerate lists every readable /dev/input/event* node and its name.
func Enumerate() ([]Info, error) {
	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return nil, err
	}
	var infos []Info
	for _, path := range paths {
		dev, err := evdev.OpenFile(path)
		if err != nil {
			continue
		}
		infos = append(infos, Info{Path: path, Name: strings.TrimSpace(dev.Name())})
		_ = dev.Close()
	}
	return infos, nil
}

// Monitor prints every event from devices whose name matches pattern until
// ctx is cancelled. An empty pattern matches everything.
func Monitor(ctx context.Context, pattern string, out func(dev, line string)) error {
	if pattern == "" {
		pattern = ".*"
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	infos, err := Enumerate()
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	opened := 0
	for _, info := range infos {
		if !re.MatchString(info.Name) {
			continue
		}
		dev, err := evdev.OpenFile(info.Path)
		if err != nil {
			continue
		}
		opened++
		wg.Add(1)
		go func(name string, dev *evdev.Evdev) {
			defer wg.Done()
			defer dev.Close()
			evChan := dev.Poll(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case env := <-evChan:
					if env == nil {
						return
					}
					ev := env.Event
					if ev.Type == evdev.EventSync {
						continue
					}
					out(name, fmt.Sprintf("type=%d code=%d value=%d", ev.Type, ev.Code, ev.Value))
				}
			}
		}(info.Name, dev)
	}
	if opened == 0 {
		return fmt.Errorf("no pointer device matches %q", pattern)
	}
	wg.Wait()
	return nil
}
