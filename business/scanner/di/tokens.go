// Package di exposes typed DI tokens for the scanner context.
package di

import (
	"github.com/fd1az/dexarb/business/scanner/app"
	"github.com/fd1az/dexarb/internal/di"
)

// Public services exposed to other modules.
var (
	Scanner = di.NewToken[*app.Scanner]("scanner.Scanner")
)

// GetScanner resolves the opportunity scanner.
func GetScanner(c di.ServiceRegistry) *app.Scanner {
	return di.GetToken(c, Scanner)
}
