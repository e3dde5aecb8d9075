package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/analytics"
	"github.com/ukydev/fleetflow/internal/config"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// simulated minutes of driving per tick
	timeScale = 60.0

	fuelPricePerLiter = 102.5
	farePerKM         = 18.0
)

// fleetStore is everything the simulator writes. The console only ever
// reads drivers and vehicles, so these writes play the external actors.
type fleetStore interface {
	InsertDriver(ctx context.Context, driver models.Driver) (primitive.ObjectID, error)
	InsertVehicle(ctx context.Context, vehicle models.Vehicle) (primitive.ObjectID, error)
	AddVehicleKM(ctx context.Context, id primitive.ObjectID, km int) error
	InsertDailyLog(ctx context.Context, log models.DailyLog) error
}

type mongoStore struct {
	drivers  *db.MongoCollection
	vehicles *db.MongoCollection
	logs     *db.MongoCollection
}

func (s *mongoStore) InsertDriver(ctx context.Context, driver models.Driver) (primitive.ObjectID, error) {
	return s.drivers.InsertDriver(ctx, driver)
}

func (s *mongoStore) InsertVehicle(ctx context.Context, vehicle models.Vehicle) (primitive.ObjectID, error) {
	return s.vehicles.InsertVehicle(ctx, vehicle)
}

func (s *mongoStore) AddVehicleKM(ctx context.Context, id primitive.ObjectID, km int) error {
	return s.vehicles.AddVehicleKM(ctx, id, km)
}

func (s *mongoStore) InsertDailyLog(ctx context.Context, log models.DailyLog) error {
	return s.logs.InsertDailyLog(ctx, log)
}

func (s *mongoStore) reset(ctx context.Context) error {
	for _, c := range []*db.MongoCollection{s.drivers, s.vehicles, s.logs} {
		if err := c.DeleteAll(ctx); err != nil {
			return fmt.Errorf("reset %s: %w", c.Collection.Name(), err)
		}
	}
	return nil
}

// Depots for realistic routes
var cities = []models.Location{
	{Lat: 12.9716, Lng: 77.5946}, // Bengaluru
	{Lat: 19.0760, Lng: 72.8777}, // Mumbai
	{Lat: 28.6139, Lng: 77.2090}, // Delhi
	{Lat: 13.0827, Lng: 80.2707}, // Chennai
	{Lat: 17.3850, Lng: 78.4867}, // Hyderabad
	{Lat: 18.5204, Lng: 73.8567}, // Pune
	{Lat: 22.5726, Lng: 88.3639}, // Kolkata
	{Lat: 23.0225, Lng: 72.5714}, // Ahmedabad
}

var (
	firstNames    = []string{"Ravi", "Asha", "Imran", "Meena", "Suresh", "Kavya", "Arjun", "Fatima", "Vikram", "Lakshmi"}
	lastNames     = []string{"Kumar", "Rao", "Khan", "Iyer", "Patel", "Nair", "Singh", "Das", "Reddy", "Menon"}
	vehicleModels = []string{"Tata Ace", "Mahindra Bolero Pickup", "Ashok Leyland Dost", "Maruti Eeco", "Eicher Pro 2049"}
)

func jitterLocation(rng *rand.Rand, base models.Location, meters float64) models.Location {
	latMetersPerDeg := 111320.0
	lngMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rng.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLng := (rng.Float64()*2 - 1) * (meters / lngMetersPerDeg)
	return models.Location{Lat: base.Lat + dLat, Lng: base.Lng + dLng}
}

func haversineKm(a, b models.Location) float64 {
	R := 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return R * c
}

func lerp(a, b models.Location, t float64) models.Location {
	return models.Location{Lat: a.Lat + (b.Lat-a.Lat)*t, Lng: a.Lng + (b.Lng-a.Lng)*t}
}

// --- Routing & movement ---

type route struct {
	Points    []models.Location
	SegIndex  int
	SegOffset float64 // km along current segment
}

// planDeliveryRoute is a loop of drop-offs around the driver's depot.
func planDeliveryRoute(rng *rand.Rand, depot models.Location) *route {
	stops := 3 + rng.Intn(4)
	pts := make([]models.Location, 0, stops+2)
	pts = append(pts, depot)
	for i := 0; i < stops; i++ {
		pts = append(pts, jitterLocation(rng, depot, 15000))
	}
	pts = append(pts, depot)
	return &route{Points: pts}
}

// stepAlongRoute moves up to km along r from pos. It returns the new
// position, the distance actually covered and whether the route's end was reached.
func stepAlongRoute(r *route, pos models.Location, km float64) (models.Location, float64, bool) {
	moved := 0.0
	for km > 0 && r.SegIndex < len(r.Points)-1 {
		a := r.Points[r.SegIndex]
		b := r.Points[r.SegIndex+1]
		segLen := haversineKm(a, b)
		leftOnSeg := segLen - r.SegOffset
		if km >= leftOnSeg {
			pos = b
			r.SegIndex++
			r.SegOffset = 0
			km -= leftOnSeg
			moved += leftOnSeg
			continue
		}
		t := (r.SegOffset + km) / segLen
		if t > 1 {
			t = 1
		}
		pos = lerp(a, b, t)
		r.SegOffset += km
		moved += km
		km = 0
	}
	return pos, moved, r.SegIndex >= len(r.Points)-1
}

// driverState is one driver and their vehicle on the road.
type driverState struct {
	Driver     models.Driver
	VehicleID  primitive.ObjectID
	Depot      models.Location
	Position   models.Location
	SpeedKmh   float64
	KMPerLiter float64

	Odometer     float64 // vehicle odometer, km
	ShiftStartKM int
	reportedKM   int // odometer already pushed to the vehicle record
	Route        *route
	OnShift      bool
}

func newDriver(rng *rand.Rand, i int) models.Driver {
	first := firstNames[rng.Intn(len(firstNames))]
	last := lastNames[rng.Intn(len(lastNames))]
	return models.Driver{
		Name:   first + " " + last,
		Email:  fmt.Sprintf("%s.%s%d@fleetflow.local", strings.ToLower(first), strings.ToLower(last), i+1),
		Phone:  fmt.Sprintf("+91 98%08d", rng.Intn(100000000)),
		Status: models.DriverActive,
	}
}

func newVehicle(rng *rand.Rand, i int) models.Vehicle {
	totalKM := 5000 + rng.Intn(60000)
	return models.Vehicle{
		Registration:  fmt.Sprintf("KA-%02d-%c%c-%04d", 1+rng.Intn(50), 'A'+rune(rng.Intn(26)), 'A'+rune(rng.Intn(26)), i+1),
		Model:         vehicleModels[rng.Intn(len(vehicleModels))],
		TotalKM:       totalKM,
		NextServiceKM: totalKM + 200 + rng.Intn(9800),
	}
}

// seed creates size drivers, each with a vehicle of their own.
func seed(ctx context.Context, store fleetStore, rng *rand.Rand, size int) ([]*driverState, error) {
	states := make([]*driverState, 0, size)
	for i := 0; i < size; i++ {
		vehicle := newVehicle(rng, i)
		vehicleID, err := store.InsertVehicle(ctx, vehicle)
		if err != nil {
			return states, fmt.Errorf("failed to create vehicle: %w", err)
		}

		driver := newDriver(rng, i)
		driver.VehicleID = vehicleID.Hex()
		driverID, err := store.InsertDriver(ctx, driver)
		if err != nil {
			return states, fmt.Errorf("failed to create driver: %w", err)
		}
		driver.ID = driverID

		depot := jitterLocation(rng, cities[rng.Intn(len(cities))], 3000)
		states = append(states, &driverState{
			Driver:     driver,
			VehicleID:  vehicleID,
			Depot:      depot,
			Position:   depot,
			SpeedKmh:   25 + rng.Float64()*25,
			KMPerLiter: 8 + rng.Float64()*8,
			Odometer:   float64(vehicle.TotalKM),
			reportedKM: vehicle.TotalKM,
		})

		log.WithFields(log.Fields{
			"driver":       driver.Name,
			"email":        driver.Email,
			"registration": vehicle.Registration,
		}).Info("Created driver and vehicle")
	}
	return states, nil
}

// startShift writes the clock-in style active log.
func startShift(ctx context.Context, store fleetStore, rng *rand.Rand, s *driverState, now time.Time) error {
	s.OnShift = true
	s.ShiftStartKM = int(s.Odometer)
	s.Route = planDeliveryRoute(rng, s.Depot)
	lat, lng := s.Position.Lat, s.Position.Lng
	ts := now.UTC()
	return store.InsertDailyLog(ctx, models.DailyLog{
		DriverID:   s.Driver.ID.Hex(),
		DriverName: s.Driver.Name,
		Date:       ts.Format("2006-01-02"),
		Timestamp:  &ts,
		Status:     models.LogStatusActive,
		Lat:        &lat,
		Lng:        &lng,
	})
}

// endShift builds the daily log for the finished route.
func endShift(rng *rand.Rand, s *driverState, now time.Time) models.DailyLog {
	s.OnShift = false
	start := s.ShiftStartKM
	end := int(s.Odometer)
	totalKM := end - start
	liters := math.Round(float64(totalKM)/s.KMPerLiter*10) / 10
	revenue := float64(totalKM) * farePerKM
	digitalShare := 0.3 + rng.Float64()*0.5
	lat, lng := s.Position.Lat, s.Position.Lng
	ts := now.UTC()

	return models.DailyLog{
		DriverID:       s.Driver.ID.Hex(),
		DriverName:     s.Driver.Name,
		Date:           ts.Format("2006-01-02"),
		OdometerStart:  start,
		OdometerEnd:    end,
		FuelLiters:     liters,
		FuelCost:       math.Round(liters*fuelPricePerLiter*100) / 100,
		RevenueCash:    math.Round(revenue*(1-digitalShare)*100) / 100,
		RevenueDigital: math.Round(revenue*digitalShare*100) / 100,
		TotalKM:        &totalKM,
		Efficiency:     analytics.Efficiency(totalKM, liters),
		Timestamp:      &ts,
		Status:         "completed",
		Lat:            &lat,
		Lng:            &lng,
	}
}

// tick advances one driver by interval of wall time.
func tick(ctx context.Context, store fleetStore, rng *rand.Rand, s *driverState, interval time.Duration, now time.Time) error {
	if !s.OnShift {
		return startShift(ctx, store, rng, s, now)
	}

	s.SpeedKmh += (rng.Float64()*2 - 1) * 3
	s.SpeedKmh = math.Max(15, math.Min(60, s.SpeedKmh))

	distance := s.SpeedKmh * interval.Hours() * timeScale
	pos, moved, done := stepAlongRoute(s.Route, s.Position, distance)
	s.Position = pos
	s.Odometer += moved

	if whole := int(s.Odometer) - s.reportedKM; whole > 0 {
		if err := store.AddVehicleKM(ctx, s.VehicleID, whole); err != nil {
			return fmt.Errorf("failed to advance odometer: %w", err)
		}
		s.reportedKM += whole
	}

	if done {
		return store.InsertDailyLog(ctx, endShift(rng, s, now))
	}
	return nil
}

func simulateDriver(ctx context.Context, store fleetStore, rng *rand.Rand, s *driverState, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			wasOnShift := s.OnShift
			if err := tick(ctx, store, rng, s, interval, now); err != nil {
				log.WithError(err).WithField("driver", s.Driver.Name).Error("Simulation step failed")
				continue
			}
			if wasOnShift != s.OnShift {
				log.WithFields(log.Fields{
					"driver":   s.Driver.Name,
					"on_shift": s.OnShift,
					"odometer": int(s.Odometer),
				}).Info("Shift changed")
			}
		}
	}
}

func main() {
	cfg := config.Load()

	client, err := db.ConnectMongo(cfg.Mongo.URI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	database := client.Database(cfg.Mongo.Database)
	store := &mongoStore{
		drivers:  &db.MongoCollection{Collection: database.Collection(db.CollectionDrivers)},
		vehicles: &db.MongoCollection{Collection: database.Collection(db.CollectionVehicles)},
		logs:     &db.MongoCollection{Collection: database.Collection(db.CollectionDailyLogs)},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Simulator.Reset {
		if err := store.reset(ctx); err != nil {
			log.WithError(err).Fatal("Failed to reset collections")
		}
		log.Info("Collections reset")
	}

	log.WithFields(log.Fields{
		"fleet_size": cfg.Simulator.FleetSize,
		"database":   cfg.Mongo.Database,
		"interval":   cfg.Simulator.Tick,
	}).Info("Starting fleet simulation")

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	states, err := seed(ctx, store, rng, cfg.Simulator.FleetSize)
	if err != nil {
		log.WithError(err).Error("Seeding stopped early")
	}
	log.WithField("created_drivers", len(states)).Info("Fleet creation completed")
	if len(states) == 0 {
		log.Error("No drivers created. Exiting.")
		return
	}

	for _, s := range states {
		// rand.Rand is not safe for concurrent use
		go simulateDriver(ctx, store, rand.New(rand.NewSource(rng.Int63())), s, cfg.Simulator.Tick)
	}

	log.Info("Fleet simulation started")
	<-ctx.Done()
	log.Info("Fleet simulation stopped")
	_ = client.Disconnect(context.Background())
}
