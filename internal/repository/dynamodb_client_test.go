package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"talkbot/internal/domain"
)

type fakeDynamo struct {
	getOut       *dynamodb.GetItemOutput
	getErr       error
	queryOut     *dynamodb.QueryOutput
	queryPages   []*dynamodb.QueryOutput
	queryErr     error
	txErr        error
	batchErr     error
	unprocessed  int
	lastGetInput *dynamodb.GetItemInput
	lastQueryIn  *dynamodb.QueryInput
	queryInputs  []*dynamodb.QueryInput
	lastTxInput  *dynamodb.TransactWriteItemsInput
	batchInputs  []*dynamodb.BatchWriteItemInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetInput = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.lastQueryIn = in
	f.queryInputs = append(f.queryInputs, in)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if len(f.queryPages) > 0 {
		page := f.queryPages[0]
		f.queryPages = f.queryPages[1:]
		return page, nil
	}
	return f.queryOut, nil
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.lastTxInput = in
	return &dynamodb.TransactWriteItemsOutput{}, f.txErr
}

// BatchWriteItem reports the last f.unprocessed requests of the first call
// as unprocessed.
func (f *fakeDynamo) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.batchInputs = append(f.batchInputs, in)
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := &dynamodb.BatchWriteItemOutput{}
	if f.unprocessed > 0 {
		for table, reqs := range in.RequestItems {
			n := min(f.unprocessed, len(reqs))
			out.UnprocessedItems = map[string][]types.WriteRequest{table: reqs[len(reqs)-n:]}
		}
		f.unprocessed = 0
	}
	return out, nil
}

func makeItem(pk, sk, text, reply, status string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":     &types.AttributeValueMemberS{Value: pk},
		"SK":     &types.AttributeValueMemberS{Value: sk},
		"text":   &types.AttributeValueMemberS{Value: text},
		"reply":  &types.AttributeValueMemberS{Value: reply},
		"status": &types.AttributeValueMemberS{Value: status},
	}
}

func makeKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

func makeMetaItem(pk string, turns int) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":    &types.AttributeValueMemberS{Value: pk},
		"SK":    &types.AttributeValueMemberS{Value: skMeta},
		"turns": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", turns)},
	}
}

func mustNewClient(t *testing.T, db *fakeDynamo) *Client {
	t.Helper()
	c, err := New(db, "test-table")
	require.NoError(t, err)
	return c
}

func TestGetConversationTurnCount_HappyPath(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: makeMetaItem("CONV#uid-1", 7)}}
	c := mustNewClient(t, db)
	turns, err := c.GetConversationTurnCount(context.Background(), "uid-1")
	require.NoError(t, err)
	require.Equal(t, 7, turns)
	require.Equal(t, "CONV#uid-1", db.lastGetInput.Key["PK"].(*types.AttributeValueMemberS).Value)
}

func TestGetConversationTurnCount_MissingMeta(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{}}
	c := mustNewClient(t, db)
	turns, err := c.GetConversationTurnCount(context.Background(), "uid-1")
	require.NoError(t, err)
	require.Equal(t, 0, turns)
}

func TestGetConversationTurnCount_GetItemError(t *testing.T) {
	db := &fakeDynamo{getErr: errors.New("boom")}
	c := mustNewClient(t, db)
	_, err := c.GetConversationTurnCount(context.Background(), "uid-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "GetConversationTurnCount")
}

func TestGetConversationTurnCount_MalformedTurns(t *testing.T) {
	db := &fakeDynamo{
		getOut: &dynamodb.GetItemOutput{
			Item: map[string]types.AttributeValue{
				"PK":    &types.AttributeValueMemberS{Value: "CONV#uid-1"},
				"SK":    &types.AttributeValueMemberS{Value: skMeta},
				"turns": &types.AttributeValueMemberS{Value: "bad"},
			},
		},
	}
	c := mustNewClient(t, db)
	_, err := c.GetConversationTurnCount(context.Background(), "uid-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode turns")
}

func TestGetHistory_HappyPath(t *testing.T) {
	db := &fakeDynamo{
		queryOut: &dynamodb.QueryOutput{
			Items: []map[string]types.AttributeValue{
				makeItem("CONV#uid-1", msgSK(time.Now()), "Hello?", "Hi!", StatusComplete),
			},
		},
	}
	c := mustNewClient(t, db)
	msgs, err := c.GetHistory(context.Background(), "uid-1", 20)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "Hello?", msgs[0].Text)
	require.Equal(t, "Hi!", msgs[0].Reply)
	require.Equal(t, "uid-1", msgs[0].UserID)
	require.Equal(t, int32(20), *db.lastQueryIn.Limit)
}

func TestGetHistory_NoLimit(t *testing.T) {
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{}}
	c := mustNewClient(t, db)
	msgs, err := c.GetHistory(context.Background(), "uid-1", 0)
	require.NoError(t, err)
	require.Empty(t, msgs)
	require.Nil(t, db.lastQueryIn.Limit)
}

func TestGetHistory_QueryError(t *testing.T) {
	db := &fakeDynamo{queryErr: errors.New("ResourceNotFoundException")}
	c := mustNewClient(t, db)
	_, err := c.GetHistory(context.Background(), "uid-1", 20)
	require.Error(t, err)
	require.Contains(t, err.Error(), "GetHistory")
}

func TestGetHistory_MalformedItem_MissingText(t *testing.T) {
	item := makeKey("CONV#uid-1", "MSG#ts")
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}}}
	c := mustNewClient(t, db)
	_, err := c.GetHistory(context.Background(), "uid-1", 20)
	require.Error(t, err)
	require.Contains(t, err.Error(), "text")
}

func TestGetHistory_KeyConditionExpression(t *testing.T) {
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{}}
	c := mustNewClient(t, db)
	_, err := c.GetHistory(context.Background(), "uid-1", 20)
	require.NoError(t, err)
	require.Equal(t, "PK = :pk AND begins_with(SK, :prefix)", *db.lastQueryIn.KeyConditionExpression)
	require.False(t, *db.lastQueryIn.ScanIndexForward)
}

func TestGetHistory_ReordersDescendingResultsToChronological(t *testing.T) {
	db := &fakeDynamo{
		queryOut: &dynamodb.QueryOutput{
			Items: []map[string]types.AttributeValue{
				makeItem("CONV#uid-1", "MSG#2026-02-27T12:00:00Z", "newer", "", StatusComplete),
				makeItem("CONV#uid-1", "MSG#2026-02-27T11:00:00Z", "older", "", StatusComplete),
			},
		},
	}
	c := mustNewClient(t, db)
	msgs, err := c.GetHistory(context.Background(), "uid-1", 20)
	require.NoError(t, err)
	require.Equal(t, "older", msgs[0].Text)
	require.Equal(t, "newer", msgs[1].Text)
}

func TestSaveTurn_HappyPath(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	msg := NewMessage("uid-1", "Who are you?", StatusComplete)
	msg.Reply = "I am TalkBot."
	meta := NewConversationMeta("uid-1", 2)

	err := c.SaveTurn(context.Background(), msg, meta)
	require.NoError(t, err)
	require.NotNil(t, db.lastTxInput)
	require.Len(t, db.lastTxInput.TransactItems, 2)
	put := db.lastTxInput.TransactItems[0].Put
	require.Equal(t, "attribute_not_exists(PK) AND attribute_not_exists(SK)", *put.ConditionExpression)
	require.Equal(t, "I am TalkBot.", put.Item["reply"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "uid-1", put.Item["userId"].(*types.AttributeValueMemberS).Value)
}

func TestSaveTurn_DynamoError(t *testing.T) {
	db := &fakeDynamo{txErr: errors.New("transaction canceled")}
	c := mustNewClient(t, db)
	err := c.SaveTurn(context.Background(), NewMessage("uid-1", "Who are you?", StatusComplete), NewConversationMeta("uid-1", 2))
	require.Error(t, err)
	require.Contains(t, err.Error(), "SaveTurn")
}

func TestSaveTurn_MissingMessagePK(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	err := c.SaveTurn(context.Background(), domain.Message{SK: "MSG#ts"}, NewConversationMeta("uid-1", 1))
	require.Error(t, err)
	require.Contains(t, err.Error(), "message PK")
}

func TestSaveTurn_MissingMetaPK(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	err := c.SaveTurn(context.Background(), NewMessage("uid-1", "hi", StatusComplete), domain.ConversationMeta{SK: skMeta})
	require.Error(t, err)
	require.Contains(t, err.Error(), "meta PK")
}

func TestSaveCompletedTurn_HappyPath(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	err := c.SaveCompletedTurn(context.Background(), "uid-1", "Who are you?", "I am TalkBot.", 2)
	require.NoError(t, err)
	require.NotNil(t, db.lastTxInput)
	require.Len(t, db.lastTxInput.TransactItems, 2)
	meta := db.lastTxInput.TransactItems[1].Put.Item
	require.Equal(t, "2", meta["turns"].(*types.AttributeValueMemberN).Value)
}

func TestSaveCompletedTurn_DynamoError(t *testing.T) {
	db := &fakeDynamo{txErr: errors.New("transaction canceled")}
	c := mustNewClient(t, db)
	err := c.SaveCompletedTurn(context.Background(), "uid-1", "Who are you?", "I am TalkBot.", 2)
	require.Error(t, err)
	require.Contains(t, err.Error(), "SaveCompletedTurn")
}

// ---------------------------------------------------------------------------
// ClearHistory
// ---------------------------------------------------------------------------

func TestClearHistory_DeletesEveryPageInBatches(t *testing.T) {
	first := make([]map[string]types.AttributeValue, 0, 20)
	for i := range 20 {
		first = append(first, makeKey("CONV#uid-1", fmt.Sprintf("MSG#%02d", i)))
	}
	second := []map[string]types.AttributeValue{
		makeKey("CONV#uid-1", "MSG#20"),
		makeKey("CONV#uid-1", "MSG#21"),
		makeKey("CONV#uid-1", "MSG#22"),
		makeKey("CONV#uid-1", "MSG#23"),
		makeKey("CONV#uid-1", "MSG#24"),
		makeKey("CONV#uid-1", "MSG#25"),
		makeKey("CONV#uid-1", skMeta),
	}
	db := &fakeDynamo{queryPages: []*dynamodb.QueryOutput{
		{Items: first, LastEvaluatedKey: first[19]},
		{Items: second},
	}}
	c := mustNewClient(t, db)

	n, err := c.ClearHistory(context.Background(), "uid-1")
	require.NoError(t, err)
	require.Equal(t, 26, n)

	require.Len(t, db.queryInputs, 2)
	require.Equal(t, "PK, SK", *db.queryInputs[0].ProjectionExpression)
	require.Equal(t, first[19], db.queryInputs[1].ExclusiveStartKey)

	require.Len(t, db.batchInputs, 2)
	require.Len(t, db.batchInputs[0].RequestItems["test-table"], maxBatchWrite)
	require.Len(t, db.batchInputs[1].RequestItems["test-table"], 2)
}

func TestClearHistory_Empty(t *testing.T) {
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{}}
	c := mustNewClient(t, db)
	n, err := c.ClearHistory(context.Background(), "uid-1")
	require.NoError(t, err)
	require.Zero(t, n)
	require.Empty(t, db.batchInputs)
}

func TestClearHistory_RetriesUnprocessed(t *testing.T) {
	db := &fakeDynamo{
		queryOut: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
			makeKey("CONV#uid-1", "MSG#1"),
			makeKey("CONV#uid-1", "MSG#2"),
			makeKey("CONV#uid-1", skMeta),
		}},
		unprocessed: 1,
	}
	c := mustNewClient(t, db)
	n, err := c.ClearHistory(context.Background(), "uid-1")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, db.batchInputs, 2)
	require.Len(t, db.batchInputs[1].RequestItems["test-table"], 1)
}

func TestClearHistory_Errors(t *testing.T) {
	db := &fakeDynamo{queryErr: errors.New("throttled")}
	_, err := mustNewClient(t, db).ClearHistory(context.Background(), "uid-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "ClearHistory")

	db = &fakeDynamo{
		queryOut: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{makeKey("CONV#uid-1", "MSG#1")}},
		batchErr: errors.New("throttled"),
	}
	_, err = mustNewClient(t, db).ClearHistory(context.Background(), "uid-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "batch delete")
}

// ---------------------------------------------------------------------------
// Constructors and keys
// ---------------------------------------------------------------------------

func TestNewMessage_Fields(t *testing.T) {
	msg := NewMessage("uid-1", "What is Go?", "pending")
	require.Equal(t, "CONV#uid-1", msg.PK)
	require.Contains(t, msg.SK, "MSG#")
	require.Equal(t, "What is Go?", msg.Text)
	require.Equal(t, "uid-1", msg.UserID)
	require.Greater(t, msg.TTL, int64(0))
}

func TestNewConversationMeta_Fields(t *testing.T) {
	meta := NewConversationMeta("uid-2", 5)
	require.Equal(t, "CONV#uid-2", meta.PK)
	require.Equal(t, skMeta, meta.SK)
	require.Equal(t, 5, meta.Turns)
	require.NotEmpty(t, meta.LastActivity)
}

func TestConvPK(t *testing.T) {
	require.Equal(t, "CONV#uid-1", convPK("uid-1"))
}

func TestMsgSK(t *testing.T) {
	ts := time.Date(2026, 2, 25, 10, 0, 0, 0, time.UTC)
	sk := msgSK(ts)
	require.Contains(t, sk, "MSG#")
	require.Contains(t, sk, fmt.Sprintf("%d", ts.Year()))
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil, "test-table")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}

func TestNew_EmptyTableName(t *testing.T) {
	_, err := New(&fakeDynamo{}, " ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be empty")
}
