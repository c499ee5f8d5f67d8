package main

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karstlabs/platform-infra/internal/lambdax"
	"github.com/karstlabs/platform-infra/pkg/types"
)

type mockDB struct {
	pages []*dynamodb.QueryOutput
	err   error
	calls int
}

func (m *mockDB) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockDB) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDB) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := m.pages[m.calls]
	m.calls++
	return out, nil
}

func inventoryItem(env, id, kind, count string) map[string]ddbtypes.AttributeValue {
	return map[string]ddbtypes.AttributeValue{
		"environment": &ddbtypes.AttributeValueMemberS{Value: env},
		"id":          &ddbtypes.AttributeValueMemberS{Value: id},
		"kind":        &ddbtypes.AttributeValueMemberS{Value: kind},
		"count":       &ddbtypes.AttributeValueMemberN{Value: count},
	}
}

func setupDeps(t *testing.T, db *mockDB) *lambdax.Deps {
	t.Helper()
	return &lambdax.Deps{
		DB:        db,
		TableName: "karst-inventory",
		Logger:    slog.Default(),
	}
}

func TestHandleAuditPass(t *testing.T) {
	db := &mockDB{pages: []*dynamodb.QueryOutput{{
		Items: []map[string]ddbtypes.AttributeValue{
			inventoryItem("staging", "lambda-fns", "lambda", "4"),
			inventoryItem("staging", "api", "apigateway", "1"),
		},
	}}}
	d := setupDeps(t, db)

	result, err := handleAudit(context.Background(), d, lambdax.AuditRequest{
		Report: types.DriftReport{
			Environment: "staging",
			Counts:      types.ChangeCounts{Same: 5},
		},
	})
	require.NoError(t, err)
	assert.True(t, result.Pass)
}

func TestHandleAuditPaginates(t *testing.T) {
	db := &mockDB{pages: []*dynamodb.QueryOutput{
		{
			Items:            []map[string]ddbtypes.AttributeValue{inventoryItem("prod", "a", "lambda", "2")},
			LastEvaluatedKey: inventoryItem("prod", "a", "lambda", "2"),
		},
		{
			Items: []map[string]ddbtypes.AttributeValue{inventoryItem("prod", "b", "sns", "1")},
		},
	}}
	d := setupDeps(t, db)

	result, err := handleAudit(context.Background(), d, lambdax.AuditRequest{
		Report: types.DriftReport{
			Environment: "prod",
			Counts:      types.ChangeCounts{Same: 3},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, db.calls)
	assert.True(t, result.Pass)
}

func TestHandleAuditFindings(t *testing.T) {
	db := &mockDB{pages: []*dynamodb.QueryOutput{{
		Items: []map[string]ddbtypes.AttributeValue{inventoryItem("prod", "a", "lambda", "4")},
	}}}
	d := setupDeps(t, db)

	result, err := handleAudit(context.Background(), d, lambdax.AuditRequest{
		Report: types.DriftReport{
			Environment: "prod",
			Counts:      types.ChangeCounts{Same: 2, Delete: 1},
		},
	})
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, 2, result.FindingCount)
}

func TestHandleAuditMissingEnvironment(t *testing.T) {
	d := setupDeps(t, &mockDB{})

	_, err := handleAudit(context.Background(), d, lambdax.AuditRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no environment")
}

func TestHandleAuditQueryFailure(t *testing.T) {
	d := setupDeps(t, &mockDB{err: errors.New("throughput exceeded")})

	_, err := handleAudit(context.Background(), d, lambdax.AuditRequest{
		Report: types.DriftReport{Environment: "prod"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading inventory")
}
