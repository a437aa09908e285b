package cmd

import (
	_ "gz302-agent/cmd/logs"
	_ "gz302-agent/cmd/param"
	_ "gz302-agent/cmd/rollback"
	_ "gz302-agent/cmd/root"
	_ "gz302-agent/cmd/run"
	_ "gz302-agent/cmd/status"
)
