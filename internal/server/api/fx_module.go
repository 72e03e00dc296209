package api

import (
	"go.uber.org/fx"
)

var Module = fx.Module("api",
	fx.Provide(
		NewAuthHandlers,
		NewUserHandlers,
		NewPermissionHandlers,
	),
)
