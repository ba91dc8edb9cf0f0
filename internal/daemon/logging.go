package daemon

import (
	"context"
	"log/slog"

	dberrors "git.home.luguber.info/inful/driverd/internal/foundation/errors"
	"git.home.luguber.info/inful/driverd/internal/logfields"
)

// logError logs err at level with its classification attributes, if any.
func logError(ctx context.Context, logger *slog.Logger, level slog.Level, msg string, err error, extra ...slog.Attr) {
	attrs := make([]slog.Attr, 0, len(extra)+6)
	attrs = append(attrs, extra...)
	if classified, ok := dberrors.AsClassified(err); ok {
		attrs = append(attrs, classified.LogAttrs()...)
	}
	attrs = append(attrs, logfields.Error(err))
	logger.LogAttrs(ctx, level, msg, attrs...)
}
