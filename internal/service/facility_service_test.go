package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tailaid/tailaid-api/internal/domain"
	"github.com/tailaid/tailaid-api/internal/service"
	"github.com/tailaid/tailaid-api/internal/testutil"
)

func TestFacilityService_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Oslo origin; Drammen is ~36 km away, Bergen ~305 km
	testutil.CreateTestFacility(t, f.db, "Bergen Vet", domain.RoleHospital, testutil.Float(60.3913), testutil.Float(5.3221))
	testutil.CreateTestFacility(t, f.db, "Drammen Rescue", domain.RoleRescueCenter, testutil.Float(59.7439), testutil.Float(10.2045))
	testutil.CreateTestFacility(t, f.db, "Anywhere Rescue", domain.RoleRescueCenter, nil, nil)
	testutil.CreateTestUser(t, f.db, "Reporter", "r@example.com", domain.RoleUser)

	t.Run("by name without origin", func(t *testing.T) {
		list, err := f.facilities.List(ctx, service.FacilityQuery{})
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "Anywhere Rescue", list[0].Name)
		assert.Nil(t, list[0].DistanceKm)
	})

	t.Run("by distance with origin", func(t *testing.T) {
		list, err := f.facilities.List(ctx, service.FacilityQuery{
			Latitude:  testutil.Float(59.9139),
			Longitude: testutil.Float(10.7522),
		})
		require.NoError(t, err)
		require.Len(t, list, 3)

		assert.Equal(t, "Drammen Rescue", list[0].Name)
		require.NotNil(t, list[0].DistanceKm)
		assert.InDelta(t, 35.0, *list[0].DistanceKm, 5)

		assert.Equal(t, "Bergen Vet", list[1].Name)
		require.NotNil(t, list[1].DistanceKm)
		assert.InDelta(t, 305.0, *list[1].DistanceKm, 10)

		assert.Equal(t, "Anywhere Rescue", list[2].Name)
		assert.Nil(t, list[2].DistanceKm)
	})

	t.Run("by type", func(t *testing.T) {
		for _, typ := range []string{"Rescue Center", "rescue_center", "rescue"} {
			list, err := f.facilities.List(ctx, service.FacilityQuery{Type: typ})
			require.NoError(t, err)
			assert.Len(t, list, 2, typ)
		}

		list, err := f.facilities.List(ctx, service.FacilityQuery{Type: "Hospital"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Hospital", list[0].Type)
	})

	t.Run("by name query", func(t *testing.T) {
		list, err := f.facilities.List(ctx, service.FacilityQuery{Name: "drammen"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Drammen Rescue", list[0].Name)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := f.facilities.List(ctx, service.FacilityQuery{Type: "Zoo"})
		assert.ErrorIs(t, err, service.ErrInvalidFacilityType)
	})
}
