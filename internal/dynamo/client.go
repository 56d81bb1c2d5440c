// Package dynamo provides a shared DynamoDB client factory. Only this
// package may import the DynamoDB SDK — adapters in other packages use the
// re-exported types and helpers defined here.
package dynamo

import (
	"context"
	"fmt"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Config holds DynamoDB connection parameters.
type Config struct {
	// Endpoint overrides the default AWS endpoint. Set to a LocalStack URL
	// (e.g. "http://localhost:4566") for local development. When empty, the
	// default AWS endpoint resolver is used.
	Endpoint string

	// Region is the AWS region for the DynamoDB client.
	Region string

	// Timeout is the HTTP client timeout for DynamoDB requests.
	Timeout time.Duration
}

// Client wraps the AWS DynamoDB SDK client.
// Adapters access the underlying SDK client via the DB field.
type Client struct {
	DB *dynamodb.Client
}

// NewClient creates a DynamoDB client configured from cfg. When cfg.Endpoint
// is non-empty, BaseEndpoint is set on the service client for LocalStack
// compatibility.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if cfg.Endpoint != "" {
		opts = append(opts,
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider("test", "test", ""),
			),
		)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	if cfg.Timeout > 0 {
		awsCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	var dbOpts []func(*dynamodb.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		dbOpts = append(dbOpts, func(o *dynamodb.Options) {
			o.BaseEndpoint = &endpoint
		})
	}

	return &Client{
		DB: dynamodb.NewFromConfig(awsCfg, dbOpts...),
	}, nil
}

// ---------------------------------------------------------------------------
// Type aliases — adapters import dynamo.GetItemInput instead of the SDK.
// ---------------------------------------------------------------------------

type (
	GetItemInput  = dynamodb.GetItemInput
	GetItemOutput = dynamodb.GetItemOutput
	Options       = dynamodb.Options

	AttributeValue        = types.AttributeValue
	AttributeValueMemberS = types.AttributeValueMemberS
)

// MarshalMap marshals a struct into a DynamoDB attribute value map.
func MarshalMap(in any) (map[string]AttributeValue, error) {
	return attributevalue.MarshalMap(in)
}

// UnmarshalMap unmarshals a DynamoDB attribute value map into a struct.
func UnmarshalMap(m map[string]AttributeValue, out any) error {
	return attributevalue.UnmarshalMap(m, out)
}

// StringAttr builds a string attribute value, used for key conditions.
func StringAttr(s string) AttributeValue {
	return &types.AttributeValueMemberS{Value: s}
}
