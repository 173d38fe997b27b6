package adapters

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamoClient replays scripted scan pages and records the inputs it saw.
type fakeDynamoClient struct {
	pages  []*dynamodb.ScanOutput
	inputs []*dynamodb.ScanInput
	err    error
	calls  int
}

func (f *fakeDynamoClient) Scan(_ context.Context, params *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	// Record a snapshot: the adapter may reuse and mutate the same input
	// struct between pages.
	snapshot := *params
	f.inputs = append(f.inputs, &snapshot)
	if f.err != nil {
		return nil, f.err
	}
	out := f.pages[f.calls]
	f.calls++
	return out, nil
}

// reserveItem builds a scan item with the attribute names the upstream
// system writes (camelCase at both the reserve and package level).
func reserveItem(id string, tenant string, trackings ...string) map[string]types.AttributeValue {
	packages := make([]types.AttributeValue, 0, len(trackings))
	for _, tn := range trackings {
		packages = append(packages, &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"id":             &types.AttributeValueMemberS{Value: "pkg-" + tn},
			"trackingNumber": &types.AttributeValueMemberS{Value: tn},
			"status":         &types.AttributeValueMemberS{Value: "created"},
			"grossWeight":    &types.AttributeValueMemberN{Value: "1.5"},
		}})
	}
	return map[string]types.AttributeValue{
		"id":          &types.AttributeValueMemberS{Value: id},
		"tenant":      &types.AttributeValueMemberN{Value: tenant},
		"orderNumber": &types.AttributeValueMemberS{Value: "SO-" + id},
		"packages":    &types.AttributeValueMemberL{Value: packages},
	}
}

func TestFetchReservesFollowsPagination(t *testing.T) {
	client := &fakeDynamoClient{pages: []*dynamodb.ScanOutput{
		{
			Items:            []map[string]types.AttributeValue{reserveItem("r1", "3", "794611111111")},
			LastEvaluatedKey: map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: "r1"}},
		},
		{
			Items: []map[string]types.AttributeValue{reserveItem("r2", "3", "794622222222", "794633333333")},
		},
	}}
	a := NewLedgerAdapter(client, "reserves")

	reserves, err := a.FetchReserves(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, reserves, 2)
	assert.Equal(t, 2, client.calls)

	// Second call resumes from the returned key.
	require.Len(t, client.inputs, 2)
	assert.Nil(t, client.inputs[0].ExclusiveStartKey)
	assert.NotNil(t, client.inputs[1].ExclusiveStartKey)

	assert.Equal(t, "r1", reserves[0].ID)
	assert.Equal(t, 3, reserves[0].Tenant)
	assert.Equal(t, "SO-r1", reserves[0].OrderNumber)
	require.Len(t, reserves[0].Packages, 1)
	assert.Equal(t, "794611111111", reserves[0].Packages[0].TrackingNumber)
	assert.Equal(t, 1.5, reserves[0].Packages[0].GrossWeight)

	require.Len(t, reserves[1].Packages, 2)
}

func TestFetchReservesTenantFilter(t *testing.T) {
	client := &fakeDynamoClient{pages: []*dynamodb.ScanOutput{{}}}
	a := NewLedgerAdapter(client, "reserves")

	_, err := a.FetchReserves(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, client.inputs, 1)
	require.NotNil(t, client.inputs[0].FilterExpression)
	assert.Equal(t, "tenant = :t", *client.inputs[0].FilterExpression)
	n, ok := client.inputs[0].ExpressionAttributeValues[":t"].(*types.AttributeValueMemberN)
	require.True(t, ok)
	assert.Equal(t, "7", n.Value)
}

func TestFetchReservesScanError(t *testing.T) {
	client := &fakeDynamoClient{err: errors.New("throttled")}
	a := NewLedgerAdapter(client, "reserves")

	_, err := a.FetchReserves(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to scan ledger table")
}

func TestTenantsDeduplicatesAndSorts(t *testing.T) {
	client := &fakeDynamoClient{pages: []*dynamodb.ScanOutput{{
		Items: []map[string]types.AttributeValue{
			{"tenant": &types.AttributeValueMemberN{Value: "5"}},
			{"tenant": &types.AttributeValueMemberN{Value: "2"}},
			{"tenant": &types.AttributeValueMemberN{Value: "5"}},
			{"other": &types.AttributeValueMemberS{Value: "ignored"}},
		},
	}}}
	a := NewLedgerAdapter(client, "reserves")

	tenants, err := a.Tenants(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5}, tenants)
}

func TestFetchReservesParsesUpstreamAttributeNames(t *testing.T) {
	item := map[string]types.AttributeValue{
		"id":                        &types.AttributeValueMemberS{Value: "r9"},
		"tenant":                    &types.AttributeValueMemberN{Value: "4"},
		"orderId":                   &types.AttributeValueMemberS{Value: "ord-9"},
		"orderNumber":               &types.AttributeValueMemberS{Value: "SO-1"},
		"shippingAddressPostalCode": &types.AttributeValueMemberS{Value: "110111"},
		"createdAt":                 &types.AttributeValueMemberS{Value: "2024-03-01T10:00:00"},
		"updatedAt":                 &types.AttributeValueMemberS{Value: "2024-03-02T10:00:00"},
		"packages": &types.AttributeValueMemberL{Value: []types.AttributeValue{
			&types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
				"id":             &types.AttributeValueMemberS{Value: "pkg-1"},
				"trackingNumber": &types.AttributeValueMemberS{Value: "794655555555"},
				"status":         &types.AttributeValueMemberS{Value: "in_transit"},
				"pieceId":        &types.AttributeValueMemberS{Value: "piece-1"},
				"grossWeight":    &types.AttributeValueMemberN{Value: "2.25"},
			}},
		}},
	}
	client := &fakeDynamoClient{pages: []*dynamodb.ScanOutput{{
		Items: []map[string]types.AttributeValue{item},
	}}}
	a := NewLedgerAdapter(client, "reserves")

	reserves, err := a.FetchReserves(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, reserves, 1)

	r := reserves[0]
	assert.Equal(t, "r9", r.ID)
	assert.Equal(t, 4, r.Tenant)
	assert.Equal(t, "ord-9", r.OrderID)
	assert.Equal(t, "SO-1", r.OrderNumber)
	assert.Equal(t, "110111", r.ShippingPostalCode)
	assert.Equal(t, "2024-03-01T10:00:00", r.CreatedAt)
	assert.Equal(t, "2024-03-02T10:00:00", r.UpdatedAt)

	require.Len(t, r.Packages, 1)
	p := r.Packages[0]
	assert.Equal(t, "pkg-1", p.ID)
	assert.Equal(t, "794655555555", p.TrackingNumber)
	assert.Equal(t, "in_transit", p.Status)
	assert.Equal(t, "piece-1", p.PieceID)
	assert.Equal(t, 2.25, p.GrossWeight)
}
