// Package di exposes typed DI tokens for the execution context.
package di

import (
	"github.com/fd1az/dexarb/business/execution/app"
	"github.com/fd1az/dexarb/internal/di"
)

// Public services exposed to other modules.
var (
	Executor            = di.NewToken[*app.Executor]("execution.Executor")
	PreconditionChecker = di.NewToken[*app.PreconditionChecker]("execution.PreconditionChecker")
)

// GetExecutor resolves the trade executor.
func GetExecutor(c di.ServiceRegistry) *app.Executor {
	return di.GetToken(c, Executor)
}

// GetPreconditionChecker resolves the precondition checker.
func GetPreconditionChecker(c di.ServiceRegistry) *app.PreconditionChecker {
	return di.GetToken(c, PreconditionChecker)
}
