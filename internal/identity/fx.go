package identity

import "go.uber.org/fx"

var Module = fx.Module("identity",
	fx.Provide(NewVerifier),
	fx.Provide(fx.Annotate(NewProviderClient, fx.As(new(PasswordResetter)))),
)
