package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/otpgate/internal/delivery"
	"github.com/shandysiswandi/otpgate/internal/passcode"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.passcode.enabled") {
		if err := passcode.New(passcode.Dependency{
			Config:      a.config,
			Instrument:  a.ins,
			UID:         a.uid,
			HMAC:        a.hmac,
			Clock:       a.clock,
			OTP:         a.hotp,
			Validator:   a.validator,
			Router:      a.router,
			DBConn:      a.dbConn,
			CacheConn:   a.cacheConn,
			Idempotency: a.idemp,
			Messaging:   a.messaging,
			Storage:     a.storage,
		}); err != nil {
			slog.Error("failed to init module passcode", "error", err)
			os.Exit(1)
		}
	}

	if a.config.GetBool("modules.delivery.enabled") {
		if err := delivery.New(delivery.Dependency{
			Ctx:        a.ctx,
			Messaging:  a.messaging,
			Config:     a.config,
			Instrument: a.ins,
			UUID:       a.uuid,
			Goroutine:  a.goroutine,
			Validator:  a.validator,
			Mail:       a.mail,
		}); err != nil {
			slog.Error("failed to init module delivery", "error", err)
			os.Exit(1)
		}
	}
}
