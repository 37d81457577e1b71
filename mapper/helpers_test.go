package mapper

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

// --- Test types ---

type SourceType struct {
	Id   int
	Name string
}

type DestinationType struct {
	Key   int
	Title string
}

type Address struct {
	Street string
	City   string
}

type CustomerDTO struct {
	Id     int    `json:"id"`
	Name   string `json:"name"`
	City   string `json:"city"`
	Orders []OrderDTO
}

type OrderDTO struct {
	Id    int
	Total float64
}

type Customer struct {
	Key       int     `odata:",key"`
	Title     string  `json:"title"`
	Address   Address `json:"address"`
	Purchases []Order
	internal  string
}

type Order struct {
	Id     int
	Amount float64
}

type Letters struct {
	A int
	B int
}

type ShiftedLetters struct {
	B int
	C int
}

func newTestEngine(t *testing.T) (*Engine, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return New(WithLogger(logger)), hook
}

// sealedEngine returns an engine initialized with the SourceType,
// CustomerDTO and Letters mappings.
func sealedEngine(t *testing.T) *Engine {
	t.Helper()
	e, _ := newTestEngine(t)
	err := e.Initialize(func(cfg *Configuration) error {
		m, err := Map[SourceType, DestinationType](cfg)
		if err != nil {
			return err
		}
		if err := m.AddFields(map[string]string{"Id": "Key", "Name": "Title"}); err != nil {
			return err
		}

		c, err := Map[CustomerDTO, Customer](cfg)
		if err != nil {
			return err
		}
		if err := c.AddFields(map[string]string{
			"id":     "Key",
			"name":   "title",
			"city":   "address/City",
			"Orders": "Purchases",
			"Total":  "Amount",
		}); err != nil {
			return err
		}

		l, err := Map[Letters, ShiftedLetters](cfg)
		if err != nil {
			return err
		}
		return l.AddFields(map[string]string{"A": "B", "B": "C"})
	})
	require.NoError(t, err)
	return e
}
