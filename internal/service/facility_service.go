package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tailaid/tailaid-api/internal/domain"
	"github.com/tailaid/tailaid-api/internal/mapper"
	"github.com/tailaid/tailaid-api/internal/repository"
	"go.uber.org/zap"
)

const earthRadiusKm = 6371.0

// FacilityQuery filters the facility directory. Origin is used only when
// both coordinates are set.
type FacilityQuery struct {
	Type      string
	Name      string
	Latitude  *float64
	Longitude *float64
}

type FacilityService struct {
	userRepo *repository.UserRepository
	logger   *zap.Logger
}

func NewFacilityService(userRepo *repository.UserRepository, logger *zap.Logger) *FacilityService {
	return &FacilityService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// List returns hospitals and rescue centers. With an origin each facility
// carries its distance and the nearest come first; facilities without
// coordinates sort last. Otherwise results are ordered by name.
func (s *FacilityService) List(ctx context.Context, q FacilityQuery) ([]domain.FacilityDTO, error) {
	roles := domain.FacilityRoles()
	if t := strings.TrimSpace(q.Type); t != "" {
		role, ok := domain.ParseFacilityType(t)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFacilityType, q.Type)
		}
		roles = []domain.UserRole{role}
	}

	users, err := s.userRepo.ListByRoles(ctx, roles, q.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to list facilities: %w", err)
	}

	hasOrigin := q.Latitude != nil && q.Longitude != nil

	facilities := make([]domain.FacilityDTO, len(users))
	for i := range users {
		var distance *float64
		if hasOrigin && users[i].HasLocation() {
			d := haversineKm(*q.Latitude, *q.Longitude, *users[i].Latitude, *users[i].Longitude)
			distance = &d
		}
		facilities[i] = mapper.ToFacilityDTO(&users[i], distance)
	}

	if hasOrigin {
		sort.SliceStable(facilities, func(i, j int) bool {
			a, b := facilities[i].DistanceKm, facilities[j].DistanceKm
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			default:
				return *a < *b
			}
		})
	}

	return facilities, nil
}

// haversineKm is the great-circle distance between two points in kilometres
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
