package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"intake-backend/internal/bootstrap"
	"intake-backend/internal/documents"
	"intake-backend/internal/queue"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	_ = ctx
	_ = params
	_ = optFns
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	_ = ctx
	_ = optFns
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

// failingRepo forces a processing error regardless of the document looked up.
type failingRepo struct {
	documents.Repo
}

func (failingRepo) GetByID(ctx context.Context, id string) (documents.Document, error) {
	return documents.Document{}, errors.New("storage down")
}

func testApp(t *testing.T) *bootstrap.App {
	t.Helper()
	app := &bootstrap.App{
		DocumentsService: &documents.Service{Repo: documents.NewMemoryRepo()},
	}
	return app
}

func encodedMessage(t *testing.T, msg queue.Message) string {
	t.Helper()
	body, err := queue.EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode message: %v", err)
	}
	return string(body)
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	client := &fakeSQS{}
	app := testApp(t)
	// Unknown document IDs are a processed no-op, so the message completes.
	body := encodedMessage(t, queue.Message{
		Kind:       queue.KindOCR,
		DocumentID: "doc-1",
		RequestID:  "req-1",
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    1,
	})
	msg := sqstypes.Message{
		MessageId:     aws.String("m1"),
		ReceiptHandle: aws.String("r1"),
		Body:          aws.String(body),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}

	handleMessage(context.Background(), app, client, "queue", msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestWorkerDoesNotDeleteOnFailure(t *testing.T) {
	client := &fakeSQS{}
	app := &bootstrap.App{
		DocumentsService: &documents.Service{Repo: failingRepo{}},
	}
	body := encodedMessage(t, queue.Message{
		Kind:       queue.KindOCR,
		DocumentID: "doc-2",
		RequestID:  "req-2",
		Version:    1,
	})
	msg := sqstypes.Message{
		MessageId:     aws.String("m2"),
		ReceiptHandle: aws.String("r2"),
		Body:          aws.String(body),
	}

	handleMessage(context.Background(), app, client, "queue", msg)

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesOnInvalidJSON(t *testing.T) {
	client := &fakeSQS{}
	app := testApp(t)
	msg := sqstypes.Message{
		MessageId:     aws.String("m3"),
		ReceiptHandle: aws.String("r3"),
		Body:          aws.String("{bad-json"),
	}

	handleMessage(context.Background(), app, client, "queue", msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesOnUnknownKind(t *testing.T) {
	client := &fakeSQS{}
	app := testApp(t)
	body := encodedMessage(t, queue.Message{
		Kind:       "reindex",
		DocumentID: "doc-4",
		Version:    1,
	})
	msg := sqstypes.Message{
		MessageId:     aws.String("m4"),
		ReceiptHandle: aws.String("r4"),
		Body:          aws.String(body),
	}

	handleMessage(context.Background(), app, client, "queue", msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}
