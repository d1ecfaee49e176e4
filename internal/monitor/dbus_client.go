package monitor

import (
	"github.com/godbus/dbus/v5"
)

const (
	busListNames    = "org.freedesktop.DBus.ListNames"
	busGetNameOwner = "org.freedesktop.DBus.GetNameOwner"
	propsGetAll     = "org.freedesktop.DBus.Properties.GetAll"
)

// DBusClient is the slice of the session bus the MPRIS host needs.
//
//go:generate mockgen -destination=mocks/dbus_client_mock.go -package=mocks github.com/genricoloni/musicbar/internal/monitor DBusClient
type DBusClient interface {
	Close() error
	AddMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)

	// ListNames returns every name currently on the bus, player or not
	ListNames() ([]string, error)

	// GetNameOwner maps a well-known name to the unique name signals carry
	// as their sender
	GetNameOwner(name string) (string, error)

	// GetAll reads every property of iface in one round trip
	GetAll(dest, path, iface string) (map[string]dbus.Variant, error)
}

// sessionBus adapts a godbus connection to DBusClient
type sessionBus struct {
	*dbus.Conn
}

// NewStdDBusClient dials a private session bus connection. Closing it
// leaves the process-wide shared connection alone.
func NewStdDBusClient() (DBusClient, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, err
	}
	return sessionBus{conn}, nil
}

func (b sessionBus) ListNames() (names []string, err error) {
	err = b.BusObject().Call(busListNames, 0).Store(&names)
	return names, err
}

func (b sessionBus) GetNameOwner(name string) (owner string, err error) {
	err = b.BusObject().Call(busGetNameOwner, 0, name).Store(&owner)
	return owner, err
}

func (b sessionBus) GetAll(dest, path, iface string) (map[string]dbus.Variant, error) {
	props := map[string]dbus.Variant{}
	err := b.Object(dest, dbus.ObjectPath(path)).Call(propsGetAll, 0, iface).Store(&props)
	return props, err
}
