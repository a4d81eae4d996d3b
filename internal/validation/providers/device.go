package providers

import (
	"context"

	"github.com/mssola/useragent"

	"riskgate/internal/validation"
	id "riskgate/pkg/domain"
)

// DeviceValidator inspects the raw User-Agent string. Bot traffic is the one
// signal the risk calculator cares about; browser and OS are kept for audit
// context.
type DeviceValidator struct{}

func NewDeviceValidator() *DeviceValidator { return &DeviceValidator{} }

func (v *DeviceValidator) Field() id.FieldType { return id.FieldDevice }
func (v *DeviceValidator) Name() string        { return "useragent-device" }

func (v *DeviceValidator) Validate(_ context.Context, value string, _ validation.ProviderContext) (*validation.FieldResult, error) {
	ua := useragent.New(value)
	browser, _ := ua.Browser()

	attrs := &validation.DeviceAttrs{
		Bot:     ua.Bot(),
		Browser: browser,
		OS:      ua.OS(),
	}
	result := &validation.FieldResult{
		Field:    id.FieldDevice,
		Provider: v.Name(),
		Valid:    value != "",
		Device:   attrs,
	}
	if attrs.Bot {
		result.AddReason(validation.ReasonDeviceBot)
	}
	return result, nil
}
