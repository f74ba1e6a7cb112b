package iothub_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/teifip/gcic-mqtt-client/iothub"
)

func TestIdentityDerivation(t *testing.T) {
	a := assert.New(t)
	id := iothub.Identity{
		ProjectID:   "proj",
		RegistryID:  "reg",
		DeviceID:    "dev1",
		CloudRegion: "us-central1",
	}
	a.NoError(id.Validate())
	a.Equal("/devices/dev1", id.NamespaceRoot())
	a.Equal("projects/proj/locations/us-central1/registries/reg/devices/dev1", id.SessionID())
}

func TestIdentityValidation(t *testing.T) {
	complete := iothub.Identity{
		ProjectID:   "proj",
		RegistryID:  "reg",
		DeviceID:    "dev1",
		CloudRegion: "us-central1",
	}
	for name, clear := range map[string]func(*iothub.Identity){
		"projectId":   func(id *iothub.Identity) { id.ProjectID = "" },
		"registryId":  func(id *iothub.Identity) { id.RegistryID = "" },
		"deviceId":    func(id *iothub.Identity) { id.DeviceID = "" },
		"cloudRegion": func(id *iothub.Identity) { id.CloudRegion = "" },
	} {
		t.Run(name, func(t *testing.T) {
			id := complete
			clear(&id)
			err := id.Validate()
			assert.True(t, errors.Is(err, iothub.ErrInvalidConfig))
			assert.Contains(t, err.Error(), name)
		})
	}
}
