package providers

import (
	"github.com/smallbiznis/meterbook/internal/providers/email"
	"github.com/smallbiznis/meterbook/internal/providers/pdf"
	"github.com/smallbiznis/meterbook/internal/providers/xlsx"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
	xlsx.Module,
)
