package domain

// CredentialReference points at credential material either inline or through
// a secret store locator. Exactly one of Material and Locator is set.
type CredentialReference struct {
	Material        []byte
	Locator         string
	ExpectedProject string
}

// CheckInfo describes a registered check for catalog listings.
type CheckInfo struct {
	Name          string
	ResourceKinds []string
	Description   string
}
