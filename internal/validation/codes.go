package validation

import (
	"fmt"
	"strings"

	id "riskgate/pkg/domain"
)

// Reason codes are stable, namespaced strings explaining a verdict. Verdict
// reasons use the `<field>.<condition>` form; orchestration-synthesized codes
// (missing field, provider failure) use the legacy uppercase form expected by
// downstream consumers.
const (
	ReasonEmailInvalidFormat    = "email.invalid_format"
	ReasonEmailDisposableDomain = "email.disposable_domain"
	ReasonEmailFreeProvider     = "email.free_provider"
	ReasonEmailRoleAccount      = "email.role_account"
	ReasonEmailNoMXRecords      = "email.no_mx_records"
	ReasonEmailCatchAll         = "email.catch_all"

	ReasonPhoneInvalidFormat   = "phone.invalid_format"
	ReasonPhoneUnreachable     = "phone.unreachable"
	ReasonPhoneVOIP            = "phone.voip"
	ReasonPhonePorted          = "phone.ported"
	ReasonPhoneCountryMismatch = "phone.country_mismatch"

	ReasonAddressInvalid            = "address.invalid"
	ReasonAddressPOBox              = "address.po_box"
	ReasonAddressNonDeliverable     = "address.non_deliverable"
	ReasonAddressPostalCityMismatch = "address.postal_city_mismatch"
	ReasonAddressGeocodeMissing     = "address.geocode_missing"

	ReasonNameTooShort = "name.too_short"

	ReasonIPVPN        = "ip.vpn"
	ReasonIPProxy      = "ip.proxy"
	ReasonIPTor        = "ip.tor"
	ReasonIPDatacenter = "ip.datacenter"
	ReasonIPInvalid    = "ip.invalid"

	ReasonDeviceBot = "device.bot"
)

// MissingFieldReason builds the placeholder code for an absent field, e.g.
// NO_EMAIL_PROVIDED.
func MissingFieldReason(field id.FieldType) string {
	return fmt.Sprintf("NO_%s_PROVIDED", strings.ToUpper(field.String()))
}

// ProviderErrorReason builds the degraded-result code for a failed provider
// call, e.g. EMAIL_VALIDATION_ERROR.
func ProviderErrorReason(field id.FieldType) string {
	return fmt.Sprintf("%s_VALIDATION_ERROR", strings.ToUpper(field.String()))
}
