//go:build integration

package mqtt

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/safih1/policedispatch/core/events"
	"github.com/safih1/policedispatch/core/model"
	"github.com/safih1/policedispatch/internal/eventbus"
)

// TestMirrorAgainstMosquitto mirrors a lifecycle event through a real broker.
func TestMirrorAgainstMosquitto(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "eclipse-mosquitto:2.0",
			ExposedPorts: []string{"1883/tcp"},
			Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
			WaitingFor:   wait.ForListeningPort("1883/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer func() { _ = container.Terminate(ctx) }()

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "1883")
	require.NoError(t, err)
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())

	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("observer"))
	var connectErr error
	for i := 0; i < 5; i++ {
		tok := sub.Connect()
		tok.Wait()
		if connectErr = tok.Error(); connectErr == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	require.NoError(t, connectErr)
	defer sub.Disconnect(100)

	got := make(chan string, 4)
	tok := sub.Subscribe("it/emergencies/#", 1, func(_ paho.Client, m paho.Message) { got <- m.Topic() })
	require.True(t, tok.WaitTimeout(5*time.Second))
	require.NoError(t, tok.Error())

	cli, err := NewPahoClient(Config{Broker: broker, ClientID: "mirror", TopicPrefix: "it", QoS: map[string]byte{"event": 1}})
	require.NoError(t, err)
	defer cli.Disconnect()

	bus := eventbus.New()
	defer bus.Close()
	mctx, cancel := context.WithCancel(ctx)
	defer cancel()
	StartMirror(mctx, bus, cli, "it")
	bus.Publish(events.LifecycleEvent{Kind: events.Received, Emergency: model.Emergency{ID: "E-9", AlertID: 9}})

	select {
	case topic := <-got:
		assert.Equal(t, "it/emergencies/E-9/received", topic)
	case <-time.After(5 * time.Second):
		t.Fatal("mirrored event not received")
	}
}
