package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busao-tracker/internal/store"
	"busao-tracker/internal/vehicle"
)

func rec(id, linha string) vehicle.Record {
	return vehicle.Record{ID: id, Plate: id, Linha: linha, Timestamp: time.Now()}
}

func TestReplaceSnapshotIsWholesale(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.ReplaceSnapshot(ctx, vehicle.ClassBus, []vehicle.Record{rec("A", "384"), rec("B", "399")}))
	require.NoError(t, m.ReplaceSnapshot(ctx, vehicle.ClassBus, []vehicle.Record{rec("C", "384")}))

	got, err := m.Snapshot(ctx, vehicle.ClassBus, []string{"384", "399"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	// no leftovers from the prior cycle
	assert.Equal(t, "C", got[0].ID)
}

func TestSnapshotEmptyFilterReturnsNothing(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.ReplaceSnapshot(ctx, vehicle.ClassBus, []vehicle.Record{rec("A", "384")}))

	got, err := m.Snapshot(ctx, vehicle.ClassBus, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSnapshotEmptyStoreIsNotAnError(t *testing.T) {
	got, err := store.NewMemory().Snapshot(context.Background(), vehicle.ClassBus, []string{"384"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClassesAreIndependent(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.ReplaceSnapshot(ctx, vehicle.ClassBus, []vehicle.Record{rec("A", "384")}))
	require.NoError(t, m.ReplaceSnapshot(ctx, vehicle.ClassBRT, []vehicle.Record{rec("X", "10")}))

	// replacing one class leaves the other alone
	require.NoError(t, m.ReplaceSnapshot(ctx, vehicle.ClassBRT, nil))

	buses, err := m.Snapshot(ctx, vehicle.ClassBus, []string{"384"})
	require.NoError(t, err)
	assert.Len(t, buses, 1)

	brts, err := m.Snapshot(ctx, vehicle.ClassBRT, []string{"10"})
	require.NoError(t, err)
	assert.Empty(t, brts)
}

func TestSearchLines(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	m.SeedLines([]vehicle.Line{
		{Numero: "384", Nome: "Pavuna - Passeio", Modo: vehicle.ClassBus},
		{Numero: "399", Nome: "Irajá - Candelária", Modo: vehicle.ClassBus},
		{Numero: "10", Nome: "Alvorada - Santa Cruz", Modo: vehicle.ClassBRT},
	})

	got, err := m.SearchLines(ctx, "38", vehicle.ClassBus, 15)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "384", got[0].Numero)

	// accent-insensitive name match
	got, err = m.SearchLines(ctx, "iraja", vehicle.ClassBus, 15)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "399", got[0].Numero)

	// class filter
	got, err = m.SearchLines(ctx, "alvorada", vehicle.ClassBus, 15)
	require.NoError(t, err)
	assert.Empty(t, got)

	// empty query is an empty result
	got, err = m.SearchLines(ctx, "  ", "", 15)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRouteShapes(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	ida := vehicle.Polyline{{Lat: -22.9, Lon: -43.2}, {Lat: -22.91, Lon: -43.21}}
	volta := vehicle.Polyline{{Lat: -22.91, Lon: -43.21}, {Lat: -22.9, Lon: -43.2}}
	m.SeedShapes("384", []vehicle.Polyline{ida, volta})

	got, err := m.RouteShapes(ctx, []string{"384", "399"})
	require.NoError(t, err)
	require.Contains(t, got, "384")
	assert.NotContains(t, got, "399")
	assert.Len(t, got["384"], 2)
}
