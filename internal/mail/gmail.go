// Package mail fetches candidate purchase messages from Gmail and decodes
// their text body and PDF attachments.
package mail

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/api/gmail/v1"

	"github.com/jonathan/inventory-sync/internal/types"
)

const user = "me"

// messagesAPI is the subset of the Gmail API used by Source
type messagesAPI interface {
	List(ctx context.Context, query string, maxResults int64) ([]string, error)
	Get(ctx context.Context, id string) (*gmail.Message, error)
	Attachment(ctx context.Context, messageID, attachmentID string) (string, error)
}

// Source implements ingest.MailSource over Gmail
type Source struct {
	api    messagesAPI
	logger zerolog.Logger
}

// NewSource creates a Source backed by the given Gmail service
func NewSource(srv *gmail.Service, logger zerolog.Logger) *Source {
	return &Source{api: &serviceAPI{srv: srv}, logger: logger}
}

// Fetch lists up to maxResults messages matching query and returns them fully
// decoded. A message that cannot be read is logged and left out of the batch,
// so it is picked up again by a later fetch.
func (s *Source) Fetch(ctx context.Context, query string, maxResults int) ([]types.Message, error) {
	ids, err := s.api.List(ctx, query, int64(maxResults))
	if err != nil {
		return nil, fmt.Errorf("unable to list messages: %w", err)
	}

	messages := make([]types.Message, 0, len(ids))
	for _, id := range ids {
		msg, err := s.fetchOne(ctx, id)
		if err != nil {
			s.logger.Warn().Err(err).Str("message_id", id).Msg("unable to retrieve message")
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *Source) fetchOne(ctx context.Context, id string) (types.Message, error) {
	full, err := s.api.Get(ctx, id)
	if err != nil {
		return types.Message{}, fmt.Errorf("get message: %w", err)
	}

	payload := full.Payload
	msg := types.Message{
		ID:      full.Id,
		From:    Header(payload, "From"),
		Subject: Header(payload, "Subject"),
		Body:    MessageBody(payload),
	}
	if msg.ID == "" {
		msg.ID = id
	}

	for _, part := range PDFParts(payload) {
		content, err := s.attachmentContent(ctx, msg.ID, part)
		if err != nil {
			return types.Message{}, fmt.Errorf("attachment %s: %w", part.Filename, err)
		}
		if len(content) == 0 {
			continue
		}
		msg.Attachments = append(msg.Attachments, types.Attachment{
			Filename: part.Filename,
			MIMEType: mimePDF,
			Content:  content,
		})
	}
	return msg, nil
}

// attachmentContent returns inline data when present, otherwise downloads the attachment
func (s *Source) attachmentContent(ctx context.Context, messageID string, part *gmail.MessagePart) ([]byte, error) {
	if part.Body == nil {
		return nil, nil
	}
	data := part.Body.Data
	if data == "" {
		if part.Body.AttachmentId == "" {
			return nil, nil
		}
		var err error
		data, err = s.api.Attachment(ctx, messageID, part.Body.AttachmentId)
		if err != nil {
			return nil, err
		}
	}
	if data == "" {
		return nil, nil
	}
	return decodeBase64URL(data)
}

// serviceAPI adapts *gmail.Service to messagesAPI
type serviceAPI struct {
	srv *gmail.Service
}

func (a *serviceAPI) List(ctx context.Context, query string, maxResults int64) ([]string, error) {
	resp, err := a.srv.Users.Messages.List(user).Q(query).MaxResults(maxResults).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

func (a *serviceAPI) Get(ctx context.Context, id string) (*gmail.Message, error) {
	return a.srv.Users.Messages.Get(user, id).Format("full").Context(ctx).Do()
}

func (a *serviceAPI) Attachment(ctx context.Context, messageID, attachmentID string) (string, error) {
	body, err := a.srv.Users.Messages.Attachments.Get(user, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return body.Data, nil
}
