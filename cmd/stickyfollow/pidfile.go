package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// acquirePIDFile records this process in path. It fails when another live
// daemon already owns the file; a stale file is replaced.
func acquirePIDFile(path string) (func(), error) {
	if data, err := os.ReadFile(path); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && pid != os.Getpid() && processAlive(pid) {
			return nil, fmt.Errorf("daemon already running (pid %d)", pid)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read pid file: %w", err)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0600); err != nil {
		return nil, fmt.Errorf("failed to write pid file: %w", err)
	}
	return func() {
		os.Remove(path)
	}, nil
}
