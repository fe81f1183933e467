package boot

import (
	"fmt"
	"strings"
)

// State is a lifecycle state of the Coordinator. States only move forward.
type State int

const (
	Unstarted State = iota
	Located
	Versioned
	PatchRegistered
	Launched
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "UNSTARTED"
	case Located:
		return "LOCATED"
	case Versioned:
		return "VERSIONED"
	case PatchRegistered:
		return "PATCH_REGISTERED"
	case Launched:
		return "LAUNCHED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// EnvType is the side of the game being launched.
type EnvType int

const (
	EnvServer EnvType = iota
	EnvClient
)

func (e EnvType) String() string {
	if e == EnvClient {
		return "client"
	}
	return "server"
}

// ParseEnvType reads "server" or "client".
func ParseEnvType(s string) (EnvType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "server":
		return EnvServer, nil
	case "client":
		return EnvClient, nil
	}
	return 0, fmt.Errorf("unknown environment %q", s)
}
