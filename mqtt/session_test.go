package mqtt_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teifip/gcic-mqtt-client/iothub"
	"github.com/teifip/gcic-mqtt-client/mqtt"
)

func rsaKeyPEM(t *testing.T) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
}

func ecKeyPEM(t *testing.T) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
}

func validOptions(t *testing.T) *mqtt.Options {
	return mqtt.NewOptions("proj", "us-central1", "reg", "dev1").
		Auth(ecKeyPEM(t), iothub.ES256)
}

func TestNewSession(t *testing.T) {
	a := assert.New(t)
	opts := validOptions(t).SetTokenLifetime(600)
	s, err := mqtt.NewSession(opts)
	require.NoError(t, err)
	a.NotNil(s.Client)
	a.InDelta(time.Now().Unix()+600, s.TokenExpiresAt(), 2)
}

func TestNewSessionMissingIdentity(t *testing.T) {
	opts := validOptions(t)
	opts.DeviceID = ""
	_, err := mqtt.NewSession(opts)
	assert.True(t, errors.Is(err, iothub.ErrInvalidConfig))
}

func TestNewSessionTokenLifetimeBounds(t *testing.T) {
	a := assert.New(t)
	for _, lifetime := range []int64{1, 86400} {
		_, err := mqtt.NewSession(validOptions(t).SetTokenLifetime(lifetime))
		a.NoError(err, "lifetime %d", lifetime)
	}
	for _, lifetime := range []int64{-1, 86401} {
		_, err := mqtt.NewSession(validOptions(t).SetTokenLifetime(lifetime))
		a.True(errors.Is(err, iothub.ErrInvalidConfig), "lifetime %d", lifetime)
	}
}

func TestNewSessionDefaults(t *testing.T) {
	a := assert.New(t)
	opts := &mqtt.Options{
		ProjectID:   "proj",
		RegistryID:  "reg",
		DeviceID:    "dev1",
		CloudRegion: "us-central1",
		PrivateKey:  rsaKeyPEM(t),
	}
	s, err := mqtt.NewSession(opts)
	require.NoError(t, err)
	a.Equal(iothub.RS256, opts.Algorithm)
	a.EqualValues(mqtt.DefaultTokenLifetime, opts.TokenLifetime)
	a.Equal(mqtt.DefaultHost, opts.Host)
	a.Equal(mqtt.DefaultPort, opts.Port)
	a.InDelta(time.Now().Unix()+mqtt.DefaultTokenLifetime, s.TokenExpiresAt(), 2)
}

func TestNewSessionBadAlgorithm(t *testing.T) {
	_, err := mqtt.NewSession(validOptions(t).Auth(rsaKeyPEM(t), "HS256"))
	assert.True(t, errors.Is(err, iothub.ErrInvalidConfig))
}

func TestNewSessionBadKey(t *testing.T) {
	a := assert.New(t)

	_, err := mqtt.NewSession(validOptions(t).Auth([]byte("not pem"), iothub.RS256))
	a.True(errors.Is(err, iothub.ErrInvalidConfig))

	// well-formed PEM of the wrong family fails at issuance
	_, err = mqtt.NewSession(validOptions(t).Auth(ecKeyPEM(t), iothub.RS256))
	a.True(errors.Is(err, iothub.ErrIssueFailed))
}

func TestNewSessionBadQoS(t *testing.T) {
	a := assert.New(t)

	opts := validOptions(t).HandleConfig(func([]byte) {}, 2)
	_, err := mqtt.NewSession(opts)
	a.True(errors.Is(err, iothub.ErrInvalidConfig))

	opts = validOptions(t).HandleCommand(func([]byte, string) {}, 2)
	_, err = mqtt.NewSession(opts)
	a.True(errors.Is(err, iothub.ErrInvalidConfig))
}

func TestPublishQoSValidation(t *testing.T) {
	a := assert.New(t)
	s, err := mqtt.NewSession(validOptions(t))
	require.NoError(t, err)

	err = s.PublishState([]byte("x"), 2).Wait()
	a.True(errors.Is(err, iothub.ErrInvalidConfig))
	err = s.PublishEvent([]byte("x"), 7, "alerts").Wait()
	a.True(errors.Is(err, iothub.ErrInvalidConfig))
}

func TestReplacePrivateKeyValidation(t *testing.T) {
	a := assert.New(t)
	s, err := mqtt.NewSession(validOptions(t))
	require.NoError(t, err)

	a.True(errors.Is(s.ReplacePrivateKey([]byte("junk")), iothub.ErrInvalidConfig))
	a.NoError(s.ReplacePrivateKey(ecKeyPEM(t)))
}
