package pricestore

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/pkg/exception"
)

func uniqueName(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("pricestore-test-%s-%d", t.Name(), time.Now().UnixNano())
}

func TestCreateUpdateRead(t *testing.T) {
	store, err := Create(uniqueName(t), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	defer func() {
		require.NoError(t, store.Close())
		require.NoError(t, store.Unlink())
	}()

	require.NoError(t, store.Update("AAPL", 150.25))

	price, err := store.Read("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 150.25, price)
}

func TestReadBeforeUpdateReturnsZero(t *testing.T) {
	store, err := Create(uniqueName(t), []string{"AAPL"})
	require.NoError(t, err)
	defer func() {
		require.NoError(t, store.Close())
		require.NoError(t, store.Unlink())
	}()

	price, err := store.Read("AAPL")
	require.NoError(t, err)
	assert.Zero(t, price)
}

func TestUnknownSymbol(t *testing.T) {
	store, err := Create(uniqueName(t), []string{"AAPL"})
	require.NoError(t, err)
	defer func() {
		require.NoError(t, store.Close())
		require.NoError(t, store.Unlink())
	}()

	err = store.Update("TSLA", 1000)
	assert.ErrorIs(t, err, exception.ErrSymbolNotFound)

	_, err = store.Read("TSLA")
	assert.ErrorIs(t, err, exception.ErrSymbolNotFound)
}

func TestAttachSeesCreatorUpdates(t *testing.T) {
	name := uniqueName(t)
	symbols := []string{"AAPL", "MSFT", "GOOGL"}

	owner, err := Create(name, symbols)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, owner.Close())
		require.NoError(t, owner.Unlink())
	}()

	attached, err := Attach(name, symbols)
	require.NoError(t, err)
	defer func() { require.NoError(t, attached.Close()) }()

	require.NoError(t, owner.Update("MSFT", 300.5))

	price, err := attached.Read("MSFT")
	require.NoError(t, err)
	assert.Equal(t, 300.5, price)

	// And the other direction.
	require.NoError(t, attached.Update("GOOGL", 2800))
	price, err = owner.Read("GOOGL")
	require.NoError(t, err)
	assert.Equal(t, 2800.0, price)
}

func TestAttachSymbolCountMismatch(t *testing.T) {
	name := uniqueName(t)

	owner, err := Create(name, []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	defer func() {
		require.NoError(t, owner.Close())
		require.NoError(t, owner.Unlink())
	}()

	_, err = Attach(name, []string{"AAPL"})
	assert.Error(t, err)
}

func TestUnlinkRequiresOwner(t *testing.T) {
	name := uniqueName(t)
	symbols := []string{"AAPL"}

	owner, err := Create(name, symbols)
	require.NoError(t, err)

	attached, err := Attach(name, symbols)
	require.NoError(t, err)

	assert.ErrorIs(t, attached.Unlink(), exception.ErrNotOwner)

	require.NoError(t, attached.Close())
	require.NoError(t, owner.Close())
	require.NoError(t, owner.Unlink())
}

func TestReadAll(t *testing.T) {
	store, err := Create(uniqueName(t), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	defer func() {
		require.NoError(t, store.Close())
		require.NoError(t, store.Unlink())
	}()

	require.NoError(t, store.Update("AAPL", 150))
	require.NoError(t, store.Update("MSFT", 300))

	all, err := store.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"AAPL": 150, "MSFT": 300}, all)
}

func TestClosedStoreRejectsAccess(t *testing.T) {
	store, err := Create(uniqueName(t), []string{"AAPL"})
	require.NoError(t, err)
	require.NoError(t, store.Close())
	defer func() { require.NoError(t, store.Unlink()) }()

	assert.ErrorIs(t, store.Update("AAPL", 1), exception.ErrStoreClosed)
	_, err = store.Read("AAPL")
	assert.ErrorIs(t, err, exception.ErrStoreClosed)
}

func TestConcurrentUpdatesKeepSlotsConsistent(t *testing.T) {
	name := uniqueName(t)
	symbols := []string{"AAPL", "MSFT"}

	owner, err := Create(name, symbols)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, owner.Close())
		require.NoError(t, owner.Unlink())
	}()

	attached, err := Attach(name, symbols)
	require.NoError(t, err)
	defer func() { require.NoError(t, attached.Close()) }()

	var wg sync.WaitGroup
	for _, store := range []*Store{owner, attached} {
		wg.Add(1)
		go func(s *Store) {
			defer wg.Done()
			for i := 1; i <= 500; i++ {
				_ = s.Update("AAPL", float64(i))
				_ = s.Update("MSFT", float64(i)*2)
			}
		}(store)
	}
	wg.Wait()

	all, err := owner.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, 500.0, all["AAPL"])
	assert.Equal(t, 1000.0, all["MSFT"])
}
