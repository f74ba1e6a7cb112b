package iothub

import "fmt"

// Identity locates one device within a registry.
// All fields are required and fixed for the lifetime of a session.
type Identity struct {
	ProjectID   string
	RegistryID  string
	DeviceID    string
	CloudRegion string
}

// Validate reports the first missing identity field
func (id *Identity) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"projectId", id.ProjectID},
		{"registryId", id.RegistryID},
		{"deviceId", id.DeviceID},
		{"cloudRegion", id.CloudRegion},
	}
	for _, f := range fields {
		if f.value == "" {
			return configErrorf("%s is required", f.name)
		}
	}
	return nil
}

// NamespaceRoot returns the topic prefix scoped to this device
func (id *Identity) NamespaceRoot() string {
	return "/devices/" + id.DeviceID
}

// SessionID returns the fully-qualified login identifier presented
// to the broker
func (id *Identity) SessionID() string {
	return fmt.Sprintf("projects/%s/locations/%s/registries/%s/devices/%s",
		id.ProjectID, id.CloudRegion, id.RegistryID, id.DeviceID)
}
