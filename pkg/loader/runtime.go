package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Command is one run of the entry routine.
type Command struct {
	Classpath []string
	MainClass string
	Args      []string
}

// Runtime executes the entry routine.
type Runtime interface {
	Run(ctx context.Context, cmd Command) error
}

// JavaRuntime runs the entry routine in a java process.
type JavaRuntime struct {
	// Java is the java executable; empty means "java" from PATH.
	Java    string
	JVMArgs []string
	Dir     string
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

// CommandLine returns the argv for cmd.
func (r *JavaRuntime) CommandLine(cmd Command) []string {
	java := r.Java
	if java == "" {
		java = "java"
	}
	argv := append([]string{java}, r.JVMArgs...)
	argv = append(argv, "-cp", strings.Join(cmd.Classpath, string(filepath.ListSeparator)), cmd.MainClass)
	return append(argv, cmd.Args...)
}

// Run starts java and waits for it. Cancelling ctx kills the process.
func (r *JavaRuntime) Run(ctx context.Context, cmd Command) error {
	argv := r.CommandLine(cmd)
	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Dir = r.Dir
	c.Stdin, c.Stdout, c.Stderr = r.Stdin, r.Stdout, r.Stderr
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	log.Debugf("Running %s", strings.Join(argv, " "))
	if err := c.Run(); err != nil {
		return fmt.Errorf("java: %w", err)
	}
	return nil
}
