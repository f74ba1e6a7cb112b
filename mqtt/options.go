package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/teifip/gcic-mqtt-client/iothub"
)

const (
	// DefaultHost is the managed broker endpoint
	DefaultHost = "mqtt.googleapis.com"

	// DefaultPort is the broker's TLS listener
	DefaultPort = 8883

	// DefaultTokenLifetime is the credential validity window in seconds
	DefaultTokenLifetime = 3600

	// MaxTokenLifetime is the longest validity window the broker accepts
	MaxTokenLifetime = 86400
)

// Options defines configuration for a device session
type Options struct {
	ProjectID   string
	RegistryID  string
	DeviceID    string
	CloudRegion string

	PrivateKey    []byte
	Algorithm     iothub.Algorithm
	TokenLifetime int64

	// OnConfig and OnCommand gate the corresponding subscriptions:
	// a channel without a handler is never subscribed to
	OnConfig   iothub.ConfigHandler
	OnCommand  iothub.CommandHandler
	ConfigQoS  int
	CommandQoS int

	Host string
	Port int

	// TLS overrides the default TLS configuration; Insecure connects
	// over plain TCP, for local brokers
	TLS      *tls.Config
	Insecure bool

	// transport options passed through unmodified
	KeepAlive            time.Duration
	ConnectTimeout       time.Duration
	MaxReconnectInterval time.Duration
	Store                paho.Store
}

// NewOptions creates options for one device with defaults applied
func NewOptions(projectID, cloudRegion, registryID, deviceID string) *Options {
	return &Options{
		ProjectID:     projectID,
		RegistryID:    registryID,
		DeviceID:      deviceID,
		CloudRegion:   cloudRegion,
		Algorithm:     iothub.RS256,
		TokenLifetime: DefaultTokenLifetime,
		ConfigQoS:     1,
		CommandQoS:    0,
		Host:          DefaultHost,
		Port:          DefaultPort,
	}
}

// Auth sets the signing key and algorithm
func (o *Options) Auth(privateKey []byte, alg iothub.Algorithm) *Options {
	o.PrivateKey = privateKey
	o.Algorithm = alg
	return o
}

// SetTokenLifetime sets the credential validity window in seconds
func (o *Options) SetTokenLifetime(seconds int64) *Options {
	o.TokenLifetime = seconds
	return o
}

// SetBroker overrides the broker endpoint
func (o *Options) SetBroker(host string, port int) *Options {
	o.Host = host
	o.Port = port
	return o
}

// HandleConfig registers the configuration callback
func (o *Options) HandleConfig(handler iothub.ConfigHandler, qos int) *Options {
	o.OnConfig = handler
	o.ConfigQoS = qos
	return o
}

// HandleCommand registers the command callback
func (o *Options) HandleCommand(handler iothub.CommandHandler, qos int) *Options {
	o.OnCommand = handler
	o.CommandQoS = qos
	return o
}

// validate applies defaults and resolves the device identity
func (o *Options) validate() (*iothub.Identity, error) {
	ident := &iothub.Identity{
		ProjectID:   o.ProjectID,
		RegistryID:  o.RegistryID,
		DeviceID:    o.DeviceID,
		CloudRegion: o.CloudRegion,
	}
	if err := ident.Validate(); err != nil {
		return nil, err
	}
	if o.Algorithm == "" {
		o.Algorithm = iothub.RS256
	}
	if !o.Algorithm.Valid() {
		return nil, &iothub.ConfigError{Reason: fmt.Sprintf("unsupported algorithm %q", o.Algorithm)}
	}
	if o.TokenLifetime == 0 {
		o.TokenLifetime = DefaultTokenLifetime
	}
	if o.TokenLifetime < 1 || o.TokenLifetime > MaxTokenLifetime {
		return nil, &iothub.ConfigError{Reason: fmt.Sprintf("tokenLifetime %d out of range [1, %d]", o.TokenLifetime, MaxTokenLifetime)}
	}
	if err := iothub.CheckPEM(o.PrivateKey); err != nil {
		return nil, err
	}
	if o.ConfigQoS != 0 && o.ConfigQoS != 1 {
		return nil, &iothub.ConfigError{Reason: fmt.Sprintf("config qos %d not in {0, 1}", o.ConfigQoS)}
	}
	if o.CommandQoS != 0 && o.CommandQoS != 1 {
		return nil, &iothub.ConfigError{Reason: fmt.Sprintf("command qos %d not in {0, 1}", o.CommandQoS)}
	}
	if o.Host == "" {
		o.Host = DefaultHost
	}
	if o.Port == 0 {
		o.Port = DefaultPort
	}
	return ident, nil
}

func (o *Options) clientOptions(clientID string, creds paho.CredentialsProvider,
	lost paho.ConnectionLostHandler, connected paho.OnConnectHandler) *paho.ClientOptions {
	opts := paho.NewClientOptions()
	scheme := "tls"
	if o.Insecure {
		scheme = "tcp"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, o.Host, o.Port))
	opts.SetClientID(clientID)
	opts.SetCredentialsProvider(creds)
	opts.SetProtocolVersion(4)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(lost)
	opts.SetOnConnectHandler(connected)
	if !o.Insecure {
		tlsConfig := o.TLS
		if tlsConfig == nil {
			tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		opts.SetTLSConfig(tlsConfig)
	}
	if o.KeepAlive > 0 {
		opts.SetKeepAlive(o.KeepAlive)
	}
	if o.ConnectTimeout > 0 {
		opts.SetConnectTimeout(o.ConnectTimeout)
	}
	if o.MaxReconnectInterval > 0 {
		opts.SetMaxReconnectInterval(o.MaxReconnectInterval)
	}
	if o.Store != nil {
		opts.SetStore(o.Store)
	}
	return opts
}
