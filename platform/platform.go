// Package platform isolates the VM from its host environment.
//
// Every builtin that touches the outside world — printing, spawning a
// process, reading an environment variable, sleeping — goes through a
// [Platform] value rather than calling os/exec/time directly. This keeps
// package vm free of a hard dependency on one concrete environment and
// mirrors the injected-collaborator shape the interpreter this package is
// modeled on uses for the same reason.
package platform

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// Kind identifies which concrete Platform implementation is in use.
type Kind string

const (
	KindNative Kind = "native"
)

// Platform is the full set of host services a VM instance needs.
// A program under test can inject a fake Platform to make exec/sleep/time
// deterministic without touching the VM's dispatch loop.
type Platform struct {
	Kind Kind

	Print func(s string)

	// Exec runs an external command, returning its exit code and
	// combined stdout+stderr.
	Exec func(args []string) (int, []byte, error)

	GetArgs func() []string

	GetEnv func(name string) (string, bool)

	GetEnvs func() map[string]string

	// GetUnixTime returns the current Unix time as seconds, including
	// the fractional part.
	GetUnixTime func() float64

	// GetPlatformInfo returns a short os/arch/go-version description.
	GetPlatformInfo func() []string

	Sleep func(durationMs float64)
}

// Native builds the Platform backed by the actual OS: os/exec for
// subprocess spawning, os.Getenv/os.Environ for the environment, and
// time.Sleep for suspension.
func Native(args []string) *Platform {
	return &Platform{
		Kind: KindNative,
		Print: func(s string) {
			fmt.Print(s)
		},
		Exec: func(args []string) (int, []byte, error) {
			if len(args) == 0 {
				return -1, nil, fmt.Errorf("exec: no command given")
			}
			cmd := exec.Command(args[0], args[1:]...)
			var out bytes.Buffer
			cmd.Stdout = &out
			cmd.Stderr = &out
			err := cmd.Run()
			code := 0
			if exitErr, ok := err.(*exec.ExitError); ok {
				code = exitErr.ExitCode()
				err = nil
			} else if err != nil {
				code = -1
			}
			return code, out.Bytes(), err
		},
		GetArgs: func() []string {
			return args
		},
		GetEnv: os.LookupEnv,
		GetEnvs: func() map[string]string {
			out := make(map[string]string)
			for _, kv := range os.Environ() {
				for i := 0; i < len(kv); i++ {
					if kv[i] == '=' {
						out[kv[:i]] = kv[i+1:]
						break
					}
				}
			}
			return out
		},
		GetUnixTime: func() float64 {
			return float64(time.Now().UnixNano()) / 1e9
		},
		GetPlatformInfo: func() []string {
			return []string{runtime.GOOS, runtime.GOARCH, runtime.Version()}
		},
		Sleep: func(durationMs float64) {
			time.Sleep(time.Duration(durationMs * float64(time.Millisecond)))
		},
	}
}
