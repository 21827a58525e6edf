package publisher

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"busao-tracker/internal/vehicle"
)

// Publisher pushes each stored vehicle record to NATS after a sync
// cycle, giving downstream consumers a push feed next to the polled
// HTTP API. Subjects look like vehicles.bus.384.D13295.
type Publisher struct {
	nc          *nats.Conn
	logSubjects bool
	metrics     Metrics
}

type Metrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	NATSSetConnected(connected bool)
}

func New(url string, logSubjects bool, m Metrics) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("busao-tracker"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Printf("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &Publisher{nc: nc, logSubjects: logSubjects, metrics: m}, nil
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

type positionMessage struct {
	ID        string    `json:"id"`
	Plate     string    `json:"ordem"`
	Linha     string    `json:"linha"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	SpeedKmh  float64   `json:"speedKmh"`
	Heading   *float64  `json:"heading,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (p *Publisher) PublishRecord(class vehicle.Class, r vehicle.Record) error {
	subject := fmt.Sprintf("vehicles.%s.%s.%s", class, subjectToken(r.Linha), subjectToken(r.ID))
	b, err := json.Marshal(positionMessage{
		ID:        r.ID,
		Plate:     r.Plate,
		Linha:     r.Linha,
		Lat:       r.Latitude,
		Lon:       r.Longitude,
		SpeedKmh:  r.Speed,
		Heading:   r.Heading,
		Timestamp: r.Timestamp,
	})
	if err != nil {
		return err
	}
	if p.logSubjects {
		log.Printf("nats publish subject=%s", subject)
	}
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
