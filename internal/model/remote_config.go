package model

// RemoteConfigParameter is a server-controlled value with its own targeting.
type RemoteConfigParameter struct {
	ID             int64
	Key            string
	Type           ValueType
	IdentifierType string
	TargetRules    []RemoteConfigTargetRule
	DefaultValue   RemoteConfigValue
}

// RemoteConfigTargetRule resolves to a value instead of a variation.
type RemoteConfigTargetRule struct {
	Key      string
	Name     string
	Target   Target
	BucketID int64
	Value    RemoteConfigValue
}

// RemoteConfigValue is a raw value as received on the wire.
type RemoteConfigValue struct {
	ID       int64
	RawValue any
}
