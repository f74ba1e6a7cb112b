package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/teifip/gcic-mqtt-client/iothub"
)

// Session wraps the MQTT connection for one device. The broker sees the
// fully-qualified device path as client ID and the signed token as
// password; both are re-read from the lifecycle manager at every
// (re)connection attempt, so a renewed token takes effect without any
// action from the caller.
type Session struct {
	Client paho.Client

	identity   iothub.Identity
	lifecycle  *iothub.LifecycleManager
	router     iothub.Router
	configQoS  byte
	commandQoS byte
}

// NewSession validates options, issues the initial credential and
// prepares the underlying client. An issuance failure here is fatal and
// no session is created. Connect starts the session.
func NewSession(options *Options) (*Session, error) {
	ident, err := options.validate()
	if err != nil {
		return nil, err
	}
	lifecycle, err := iothub.NewLifecycleManager(options.Algorithm, options.PrivateKey,
		ident.ProjectID, options.TokenLifetime, time.Now().Unix())
	if err != nil {
		return nil, err
	}
	s := &Session{
		identity:  *ident,
		lifecycle: lifecycle,
		router: iothub.Router{
			Config:  options.OnConfig,
			Command: options.OnCommand,
		},
		configQoS:  byte(options.ConfigQoS),
		commandQoS: byte(options.CommandQoS),
	}
	s.Client = paho.NewClient(options.clientOptions(
		ident.SessionID(), s.credentials, s.connectionLost, s.connected))
	return s, nil
}

// OnDisconnect registers the session-loss notification hook.
// Set before Connect.
func (s *Session) OnDisconnect(f iothub.DisconnectFunc) {
	s.lifecycle.OnDisconnect = f
}

// OnTokenRenewed registers the renewal notification hook.
// Set before Connect.
func (s *Session) OnTokenRenewed(f iothub.RenewedFunc) {
	s.lifecycle.OnTokenRenewed = f
}

// Connect opens the session
func (s *Session) Connect() *Future {
	return &Future{token: s.Client.Connect()}
}

// Close implements io.Closer
func (s *Session) Close() error {
	s.Client.Disconnect(250)
	return nil
}

// TokenExpiresAt returns the expiry of the currently issued token
func (s *Session) TokenExpiresAt() int64 {
	return s.lifecycle.ExpiresAt()
}

// ReplacePrivateKey stores a new signing key for the next renewal;
// the active token is unaffected
func (s *Session) ReplacePrivateKey(keyPEM []byte) error {
	return s.lifecycle.ReplacePrivateKey(keyPEM)
}

// PublishState publishes the device state
func (s *Session) PublishState(payload []byte, qos int) *Future {
	return s.publish(s.identity.NamespaceRoot()+"/state", payload, qos)
}

// PublishEvent publishes telemetry, optionally under a subfolder
func (s *Session) PublishEvent(payload []byte, qos int, subfolder string) *Future {
	return s.publish(s.eventTopic(subfolder), payload, qos)
}

func (s *Session) eventTopic(subfolder string) string {
	topic := s.identity.NamespaceRoot() + "/events"
	if subfolder != "" {
		topic += "/" + subfolder
	}
	return topic
}

func (s *Session) publish(topic string, payload []byte, qos int) *Future {
	if qos != 0 && qos != 1 {
		return immediateFuture(&iothub.ConfigError{Reason: fmt.Sprintf("qos %d not in {0, 1}", qos)})
	}
	return &Future{token: s.Client.Publish(topic, byte(qos), false, payload)}
}

// credentials is read by paho while building each CONNECT packet. The
// lost-connection handler and the reconnect loop run as separate
// goroutines, so renewing here rather than only on session loss keeps
// the first reconnect attempt from racing ahead with a stale token. A
// failed renewal returns the stale token; the broker's rejection then
// surfaces through the transport's own error channel.
func (s *Session) credentials() (string, string) {
	token, _ := s.lifecycle.Refresh(time.Now().Unix())
	return "unused", token
}

// connectionLost delivers the lifecycle notifications and covers the
// renewal in case the transport is done retrying
func (s *Session) connectionLost(_ paho.Client, _ error) {
	_ = s.lifecycle.SessionLost(time.Now().Unix())
}

// connected (re)establishes the inbound subscriptions; paho invokes it
// again after every reconnect
func (s *Session) connected(client paho.Client) {
	if s.router.Config != nil {
		client.Subscribe(s.identity.NamespaceRoot()+"/config", s.configQoS, s.inbound)
	}
	if s.router.Command != nil {
		client.Subscribe(s.identity.NamespaceRoot()+"/commands/#", s.commandQoS, s.inbound)
	}
}

func (s *Session) inbound(_ paho.Client, msg paho.Message) {
	s.router.Route(msg.Topic(), msg.Payload())
}
