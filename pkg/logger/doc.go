// Package logger provides structured logging built on log/slog with
// environment presets and automatic context attribute injection.
//
// The factory produces loggers pre-configured for development (text, debug)
// or production (JSON, info) use, and the attr helpers keep log field names
// consistent across the notification pipeline (user_id, dealer_id, channel,
// notification_id, ...).
//
// # Usage
//
//	log := logger.New(
//	    logger.WithProduction("notifykit"),
//	    logger.WithContextValue("notification_id", ctxkey.NotificationID),
//	)
//	log.InfoContext(ctx, "delivery recorded",
//	    logger.UserID(userID),
//	    logger.Channel("sms"),
//	)
package logger
