//go:build tools

package presence_sdk

import (
	_ "go.uber.org/mock/mockgen"
)
