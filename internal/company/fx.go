package company

import (
	"github.com/smallbiznis/invoicer/internal/company/service"
	"go.uber.org/fx"
)

var Module = fx.Module("company.service",
	fx.Provide(service.New),
)
