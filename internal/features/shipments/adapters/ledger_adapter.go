package adapters

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"tracking-sentinel/internal/core/config"
	"tracking-sentinel/internal/core/logger"
	"tracking-sentinel/internal/features/shipments/domain"
)

// dynamoAPI is the slice of the DynamoDB client the adapter uses.
type dynamoAPI interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// LedgerAdapter reads reserve records from the upstream DynamoDB table.
// The table belongs to another system; this adapter never writes to it.
type LedgerAdapter struct {
	client dynamoAPI
	table  string
	log    *zap.Logger
}

// NewLedgerClient builds a DynamoDB client from the ledger configuration.
func NewLedgerClient(ctx context.Context, cfg config.LedgerConfig) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger credentials: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg), nil
}

// NewLedgerAdapter creates a read-only adapter over the given table.
func NewLedgerAdapter(client dynamoAPI, table string) *LedgerAdapter {
	return &LedgerAdapter{
		client: client,
		table:  table,
		log:    logger.Named("ledger"),
	}
}

// FetchReserves scans the full table, following pagination, and maps items
// into domain reserves. tenant <= 0 fetches all tenants.
func (a *LedgerAdapter) FetchReserves(ctx context.Context, tenant int) ([]domain.Reserve, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(a.table)}
	if tenant > 0 {
		input.FilterExpression = aws.String("tenant = :t")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberN{Value: strconv.Itoa(tenant)},
		}
	}

	var reserves []domain.Reserve
	pages := 0
	for {
		out, err := a.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger table %s: %w", a.table, err)
		}
		pages++
		for _, item := range out.Items {
			reserves = append(reserves, parseReserveItem(item))
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	a.log.Info("Ledger scan complete",
		zap.Int("tenant", tenant),
		zap.Int("pages", pages),
		zap.Int("reserves", len(reserves)))
	return reserves, nil
}

// Tenants returns the distinct tenant numbers present in the ledger, sorted.
func (a *LedgerAdapter) Tenants(ctx context.Context) ([]int, error) {
	input := &dynamodb.ScanInput{
		TableName:            aws.String(a.table),
		ProjectionExpression: aws.String("tenant"),
	}

	seen := make(map[int]struct{})
	for {
		out, err := a.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger tenants: %w", err)
		}
		for _, item := range out.Items {
			if t := attrInt(item, "tenant"); t > 0 {
				seen[t] = struct{}{}
			}
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	tenants := make([]int, 0, len(seen))
	for t := range seen {
		tenants = append(tenants, t)
	}
	sort.Ints(tenants)
	return tenants, nil
}

func parseReserveItem(item map[string]types.AttributeValue) domain.Reserve {
	r := domain.Reserve{
		ID:                 attrString(item, "id"),
		Tenant:             attrInt(item, "tenant"),
		OrderID:            attrString(item, "orderId"),
		OrderNumber:        attrString(item, "orderNumber"),
		ShippingPostalCode: attrString(item, "shippingAddressPostalCode"),
		CreatedAt:          attrString(item, "createdAt"),
		UpdatedAt:          attrString(item, "updatedAt"),
	}
	if list, ok := item["packages"].(*types.AttributeValueMemberL); ok {
		for _, el := range list.Value {
			m, ok := el.(*types.AttributeValueMemberM)
			if !ok {
				continue
			}
			r.Packages = append(r.Packages, domain.Package{
				ID:             attrString(m.Value, "id"),
				TrackingNumber: attrString(m.Value, "trackingNumber"),
				Status:         attrString(m.Value, "status"),
				PieceID:        attrString(m.Value, "pieceId"),
				GrossWeight:    attrFloat(m.Value, "grossWeight"),
			})
		}
	}
	return r
}

func attrString(item map[string]types.AttributeValue, key string) string {
	if v, ok := item[key].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func attrInt(item map[string]types.AttributeValue, key string) int {
	if v, ok := item[key].(*types.AttributeValueMemberN); ok {
		if n, err := strconv.Atoi(v.Value); err == nil {
			return n
		}
	}
	return 0
}

func attrFloat(item map[string]types.AttributeValue, key string) float64 {
	if v, ok := item[key].(*types.AttributeValueMemberN); ok {
		if f, err := strconv.ParseFloat(v.Value, 64); err == nil {
			return f
		}
	}
	return 0
}
