package model

// CredentialType classifies a stored secret.
type CredentialType string

const (
	CredentialTypeAPIKey   CredentialType = "api_key"
	CredentialTypeToken    CredentialType = "token"
	CredentialTypePassword CredentialType = "password"
	CredentialTypeSSHKey   CredentialType = "ssh_key"
)

// Permission is a capability granted to holders of a credential.
type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
	PermissionAdmin Permission = "admin"
)

// Valid reports whether p is a known permission.
func (p Permission) Valid() bool {
	switch p {
	case PermissionRead, PermissionWrite, PermissionAdmin:
		return true
	}
	return false
}

// ResourceStatus represents the availability of a bookable resource.
type ResourceStatus string

const (
	ResourceStatusAvailable ResourceStatus = "available"
	ResourceStatusBooked    ResourceStatus = "booked"
	ResourceStatusRetired   ResourceStatus = "retired"
)

// Valid reports whether s is a known resource status.
func (s ResourceStatus) Valid() bool {
	switch s {
	case ResourceStatusAvailable, ResourceStatusBooked, ResourceStatusRetired:
		return true
	}
	return false
}

// BookingStatus represents the state of a booking. Cancelled bookings are kept
// for audit history.
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// QuotaType is the usage dimension a quota limits.
type QuotaType string

const (
	QuotaTypeAPICalls QuotaType = "api_calls"
	QuotaTypeCost     QuotaType = "cost"
	QuotaTypeTokens   QuotaType = "tokens"
	QuotaTypeStorage  QuotaType = "storage"
)

// QuotaPeriod is the window after which a quota is reset.
type QuotaPeriod string

const (
	QuotaPeriodDaily   QuotaPeriod = "daily"
	QuotaPeriodWeekly  QuotaPeriod = "weekly"
	QuotaPeriodMonthly QuotaPeriod = "monthly"
)

// QuotaState is derived from usage relative to the limit.
type QuotaState string

const (
	QuotaStateUnderThreshold QuotaState = "under_threshold"
	QuotaStateWarning        QuotaState = "warning"
	QuotaStateExceeded       QuotaState = "exceeded"
)
