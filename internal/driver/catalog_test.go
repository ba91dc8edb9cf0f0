package driver_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/driverd/internal/driver"
	"git.home.luguber.info/inful/driverd/internal/driver/drivertest"
)

func TestCatalog(t *testing.T) {
	c := driver.NewCatalog()
	pool := drivertest.NewPool(nil)

	require.NoError(t, c.Register("fake", pool.Factory()))
	assert.Error(t, c.Register("fake", pool.Factory()), "duplicate key")
	assert.Error(t, c.Register("", pool.Factory()))
	assert.Error(t, c.Register("nil", nil))
	assert.Equal(t, []string{"fake"}, c.Keys())

	drv, err := c.New(driver.Descriptor{Name: "mailer", Type: "fake"})
	require.NoError(t, err)
	assert.NotNil(t, drv)
	assert.Len(t, pool.Built("mailer"), 1)

	_, err = c.New(driver.Descriptor{Name: "mailer"})
	assert.Error(t, err, "type defaults to the name, which has no factory")
}

func TestCatalog_FactoryError(t *testing.T) {
	c := driver.NewCatalog()
	c.MustRegister("broken", func(driver.Descriptor) (driver.Driver, error) {
		return nil, errors.New("boom")
	})
	c.MustRegister("empty", func(driver.Descriptor) (driver.Driver, error) {
		return nil, nil
	})

	_, err := c.New(driver.Descriptor{Name: "broken"})
	assert.ErrorContains(t, err, "boom")
	_, err = c.New(driver.Descriptor{Name: "empty"})
	assert.Error(t, err)
}
