package catalog

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/bakery-engine/internal/domain/customer"
	"github.com/xenking/bakery-engine/internal/domain/product"
	"github.com/xenking/bakery-engine/internal/storage/memory"
)

const productsJSON = `[
  {"code":"X1","name":"Alfajor","price":"1200.005","category":"PASTELERIA_TRADICIONAL","stock":7,"vegan":true},
  {"code":"X2","name":"Torta Piña","price":38000,"category":"TORTAS_CIRCULARES","shape":"CIRCULAR","size":"GRANDE","active":false,"stock_minimum":2}
]`

func TestDefaults(t *testing.T) {
	ps := Defaults(3)
	require.Len(t, ps, 16)

	codes := make(map[string]bool)
	for _, p := range ps {
		assert.False(t, codes[p.Code], "duplicate code %s", p.Code)
		codes[p.Code] = true
		assert.Equal(t, 3, p.Stock)
		assert.True(t, p.Active)
		assert.Equal(t, product.DefaultStockMinimum, p.StockMinimum)
		assert.True(t, p.Price.IsPositive())
	}

	assert.Equal(t, "TC001", ps[0].Code)
	assert.True(t, ps[0].IsCake())
	assert.Equal(t, "45000", ps[0].Price.String())
	assert.True(t, ps[6].Dietary.SugarFree)
	assert.False(t, ps[7].Customizable)
}

func TestDecodeProducts(t *testing.T) {
	ps, err := DecodeProducts(strings.NewReader(productsJSON))
	require.NoError(t, err)
	require.Len(t, ps, 2)

	assert.Equal(t, "1200.01", ps[0].Price.StringFixed(2))
	assert.True(t, ps[0].Active)
	assert.True(t, ps[0].Dietary.Vegan)
	assert.Equal(t, product.DefaultStockMinimum, ps[0].StockMinimum)

	assert.False(t, ps[1].Active)
	assert.Equal(t, 2, ps[1].StockMinimum)
	assert.Equal(t, product.SizeLarge, ps[1].Size)
}

func TestDecodeProductsInvalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"malformed", `[{`},
		{"missing code", `[{"name":"a","price":1}]`},
		{"negative price", `[{"code":"a","name":"a","price":-1}]`},
		{"negative stock", `[{"code":"a","name":"a","price":1,"stock":-1}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeProducts(strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestDecodeCustomers(t *testing.T) {
	in := `[
	  {"email":"ana@duoc.cl","first_name":"Ana","last_name":"Rojas","birth_date":"1950-04-02"},
	  {"email":"staff@bakery.cl","role":"admin"}
	]`
	cs, err := DecodeCustomers(strings.NewReader(in), customer.DefaultStudentDomain)
	require.NoError(t, err)
	require.Len(t, cs, 2)

	assert.True(t, cs[0].Student)
	assert.Equal(t, 1950, cs[0].BirthDate.Year())
	assert.Equal(t, customer.RoleAdmin, cs[1].Role)
	assert.True(t, cs[1].BirthDate.IsZero())

	_, err = DecodeCustomers(strings.NewReader(`[{"email":"a@b.c","birth_date":"02/04/1950"}]`), "")
	assert.Error(t, err)
	_, err = DecodeCustomers(strings.NewReader(`[{"first_name":"x"}]`), "")
	assert.Error(t, err)
}

func TestOpenGzip(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	zw := pgzip.NewWriter(&buf)
	_, err := zw.Write([]byte(productsJSON))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	gzPath := filepath.Join(dir, "products.json.gz")
	require.NoError(t, os.WriteFile(gzPath, buf.Bytes(), 0o600))
	plainPath := filepath.Join(dir, "products.json")
	require.NoError(t, os.WriteFile(plainPath, []byte(productsJSON), 0o600))

	for _, path := range []string{gzPath, plainPath} {
		rc, err := Open(path)
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.JSONEq(t, productsJSON, string(data))
	}

	_, err = Open(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	ps := Defaults(10)
	require.NoError(t, SeedProducts(ctx, store.Products(), ps))
	for _, p := range ps {
		assert.NotEmpty(t, p.ID)
	}

	// Reseeding keeps ids and overwrites stock.
	again := Defaults(4)
	require.NoError(t, SeedProducts(ctx, store.Products(), again))
	listed, err := store.Products().List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 16)
	for _, p := range listed {
		assert.Equal(t, 4, p.Stock)
	}
	got, err := store.Products().GetByID(ctx, ps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "TC001", got.Code)

	cs, err := DecodeCustomers(strings.NewReader(`[{"email":"Luis@Example.com","first_name":"Luis"}]`), "")
	require.NoError(t, err)
	require.NoError(t, SeedCustomers(ctx, store.Customers(), cs))
	c, err := store.Customers().GetByEmail(ctx, "luis@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Luis", c.FirstName)
	assert.False(t, c.CreatedAt.IsZero())
}
