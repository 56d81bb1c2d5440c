package adapter

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/relaygate/relaygate/internal/domain"
	"github.com/relaygate/relaygate/internal/dynamo"
	"github.com/relaygate/relaygate/internal/gateway/app"
)

// Compile-time check: InstanceStore satisfies app.InstanceStore.
var _ app.InstanceStore = (*InstanceStore)(nil)

// instanceDynamoDB is a narrow, consumer-defined interface for the DynamoDB
// operations required by the instance store. The *dynamodb.Client satisfies
// this interface.
type instanceDynamoDB interface {
	GetItem(ctx context.Context, params *dynamo.GetItemInput, optFns ...func(*dynamo.Options)) (*dynamo.GetItemOutput, error)
}

// instanceItem is the DynamoDB item shape for the instances table.
// PK tenant_id, SK instance_name: lookups are tenant-scoped by construction,
// so another tenant's instance is indistinguishable from a missing one.
type instanceItem struct {
	TenantID           string `dynamodbav:"tenant_id"`
	InstanceName       string `dynamodbav:"instance_name"`
	ProviderInstanceID string `dynamodbav:"provider_instance_id"`
	APIKey             string `dynamodbav:"instance_api_key"`
	Status             string `dynamodbav:"status"`
}

// InstanceStore resolves tenant-owned messaging instances from DynamoDB.
type InstanceStore struct {
	db        instanceDynamoDB
	tableName string
}

// NewInstanceStore creates an InstanceStore backed by the given DynamoDB
// client.
func NewInstanceStore(db instanceDynamoDB, tableName string) *InstanceStore {
	return &InstanceStore{db: db, tableName: tableName}
}

// Resolve returns the instance owned by tenantID under instanceName.
// Returns domain.ErrInstanceNotFound when absent (or owned by another
// tenant) and domain.ErrStoreUnavailable on DynamoDB failure.
func (s *InstanceStore) Resolve(ctx context.Context, tenantID, instanceName string) (*app.Instance, error) {
	ctx, span := tracer.Start(ctx, "dynamo.instances.resolve")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "GetItem"),
	)

	out, err := s.db.GetItem(ctx, &dynamo.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]dynamo.AttributeValue{
			"tenant_id":     dynamo.StringAttr(tenantID),
			"instance_name": dynamo.StringAttr(instanceName),
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("instance store: resolve %q: %w: %v",
			instanceName, domain.ErrStoreUnavailable, err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("instance store: resolve %q: %w",
			instanceName, domain.ErrInstanceNotFound)
	}

	var item instanceItem
	if err := dynamo.UnmarshalMap(out.Item, &item); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("instance store: unmarshal %q: %w: %v",
			instanceName, domain.ErrStoreUnavailable, err)
	}

	return &app.Instance{
		TenantID:           item.TenantID,
		InstanceName:       item.InstanceName,
		ProviderInstanceID: item.ProviderInstanceID,
		APIKey:             item.APIKey,
		Status:             item.Status,
	}, nil
}
