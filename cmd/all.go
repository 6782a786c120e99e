package cmd

import (
	_ "envis/cmd/cert"
	_ "envis/cmd/env"
	_ "envis/cmd/hosts"
	_ "envis/cmd/root"
	_ "envis/cmd/server"
)
