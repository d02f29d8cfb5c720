package closenicely

import (
	"io"

	"go.uber.org/zap"
)

// OrDebug closes closer, logging any failure at debug level. Use it for deferred closes whose
// error cannot change the outcome.
func OrDebug(closer io.Closer) {
	FuncOrDebug(closer.Close)
}

func FuncOrDebug(closer func() error) {
	if err := closer(); err != nil {
		zap.L().Debug("Failed to close resource", zap.Error(err))
	}
}

// OrJoin closes closer and stores its error in errp unless errp already holds one. Meant for
// `defer closenicely.OrJoin(f, &err)` on writable files, where a failed close loses data.
func OrJoin(closer io.Closer, errp *error) {
	if err := closer.Close(); err != nil && *errp == nil {
		*errp = err
	}
}
