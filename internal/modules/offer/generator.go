package offer

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"partner/internal/logger"
	"partner/internal/modules/order"
	"partner/internal/types"
)

// Quoter estimates road distance and travel time between two points.
type Quoter interface {
	Quote(ctx context.Context, from, to types.Point) (distanceKm float64, eta time.Duration, err error)
}

const (
	batchSize        = 3
	baseEarnings     = 25
	earningsPerKm    = 8
	maxDeclaredValue = 9000
)

var (
	senderNames   = []string{"Asha Stores", "Kumar Electronics", "Green Basket", "Daily Needs Mart", "Lakshmi Pharmacy"}
	customerNames = []string{"Rahul Sharma", "Priya Nair", "Arjun Rao", "Meera Iyer", "Vikram Singh", "Divya Menon"}
	parcels       = []string{"Documents envelope", "Grocery bag", "Small electronics box", "Medicine packet", "Clothing parcel"}
	streets       = []string{"MG Road", "Indiranagar 100ft Rd", "Koramangala 5th Block", "HSR Layout Sector 2", "Jayanagar 4th Block", "Whitefield Main Rd"}
	itemNames     = []string{"Box", "Envelope", "Bag", "Pouch"}
)

// Generator manufactures candidate orders around a centre point. Every call to Candidates yields a
// fresh batch; nothing is shared between workers so Claim always succeeds.
type Generator struct {
	center   types.Point
	radiusKm float64
	quoter   Quoter
	log      *logger.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewGenerator(center types.Point, radiusKm float64, quoter Quoter, seed uint64, log *logger.Logger) *Generator {
	if radiusKm <= 0 {
		radiusKm = 5
	}
	return &Generator{
		center:   center,
		radiusKm: radiusKm,
		quoter:   quoter,
		log:      log,
		rnd:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (g *Generator) Candidates(ctx context.Context) ([]order.Order, error) {
	out := make([]order.Order, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		o, err := g.manufacture(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (g *Generator) Claim(context.Context, types.ID) (bool, error) { return true, nil }

func (g *Generator) manufacture(ctx context.Context) (order.Order, error) {
	g.mu.Lock()
	pickup := g.pointNear()
	dropoff := g.pointNear()
	method := order.PaymentPrepaid
	if g.rnd.IntN(2) == 0 {
		method = order.PaymentCOD
	}
	o := order.Order{
		ID:            types.ID(uuid.NewString()),
		Sender:        order.Contact{Name: pick(g.rnd, senderNames), Phone: g.phone()},
		Customer:      order.Contact{Name: pick(g.rnd, customerNames), Phone: g.phone()},
		Pickup:        order.Location{Address: g.address(), Point: pickup},
		Dropoff:       order.Location{Address: g.address(), Point: dropoff},
		Parcel:        pick(g.rnd, parcels),
		OrderValue:    types.INR(int64(100 + g.rnd.IntN(maxDeclaredValue))),
		PaymentMethod: method,
		Items:         g.items(),
	}
	g.mu.Unlock()

	km, eta, err := g.quote(ctx, pickup, dropoff)
	if err != nil {
		return order.Order{}, err
	}
	o.DistanceKm = math.Round(km*10) / 10
	o.DurationMin = int(math.Ceil(eta.Minutes()))
	o.PartnerEarnings = types.INR(baseEarnings + int64(math.Round(km*earningsPerKm)))
	return o, nil
}

func (g *Generator) quote(ctx context.Context, from, to types.Point) (float64, time.Duration, error) {
	if g.quoter == nil {
		return 0, 0, fmt.Errorf("generator has no quoter")
	}
	km, eta, err := g.quoter.Quote(ctx, from, to)
	if err != nil {
		return 0, 0, fmt.Errorf("quote route: %w", err)
	}
	return km, eta, nil
}

// pointNear draws a uniformly distributed point within radiusKm of the centre.
func (g *Generator) pointNear() types.Point {
	r := g.radiusKm * math.Sqrt(g.rnd.Float64())
	theta := 2 * math.Pi * g.rnd.Float64()
	dLat := r * math.Cos(theta) / 111.0
	dLng := r * math.Sin(theta) / (111.0 * math.Cos(g.center.Lat*math.Pi/180))
	return types.Point{Lat: g.center.Lat + dLat, Lng: g.center.Lng + dLng}
}

func (g *Generator) phone() string {
	return fmt.Sprintf("+91 9%09d", g.rnd.IntN(1_000_000_000))
}

func (g *Generator) address() string {
	return fmt.Sprintf("%d, %s", 1+g.rnd.IntN(250), pick(g.rnd, streets))
}

func (g *Generator) items() []order.LineItem {
	n := 1 + g.rnd.IntN(3)
	out := make([]order.LineItem, n)
	for i := range out {
		out[i] = order.LineItem{Name: pick(g.rnd, itemNames), Quantity: 1 + g.rnd.IntN(4)}
	}
	return out
}

func pick(r *rand.Rand, xs []string) string { return xs[r.IntN(len(xs))] }
