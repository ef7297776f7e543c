package core

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/andresthedesigner/videodaddychat/internal/blob"
	"github.com/andresthedesigner/videodaddychat/internal/common"
	"github.com/andresthedesigner/videodaddychat/internal/logging"
	"github.com/andresthedesigner/videodaddychat/internal/store"
)

const MaxFileSize = 10 * 1024 * 1024

var AllowedFileTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"application/pdf",
	"text/plain",
	"text/markdown",
	"application/json",
	"text/csv",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ValidateFile checks an attachment's declared size and MIME type.
func ValidateFile(fileType string, size int64) error {
	if size > MaxFileSize {
		return common.NewValidationError("File size exceeds %dMB limit", MaxFileSize/(1024*1024))
	}
	mime, _, _ := strings.Cut(fileType, ";")
	if !slices.Contains(AllowedFileTypes, strings.TrimSpace(mime)) {
		return common.NewValidationError("File type not supported or doesn't match its extension")
	}
	return nil
}

type UploadURL struct {
	UploadURL string `json:"uploadUrl"`
	StorageID string `json:"storageId"`
}

type UploadLimit struct {
	Count     int  `json:"count"`
	Limit     int  `json:"limit"`
	CanUpload bool `json:"canUpload"`
}

type SaveAttachmentInput struct {
	ChatID    string `json:"chatId"`
	StorageID string `json:"storageId"`
	FileName  string `json:"fileName"`
	FileType  string `json:"fileType"`
	FileSize  int64  `json:"fileSize"`
}

// FileService tracks chat attachments. The bytes live in blob storage and
// move between client and bucket through presigned URLs.
type FileService struct {
	store store.Store
	blobs blob.Store
	chats *ChatService
	log   logging.Logger
	now   func() time.Time
}

func NewFileService(s store.Store, blobs blob.Store, chats *ChatService, log logging.Logger) *FileService {
	return &FileService{store: s, blobs: blobs, chats: chats, log: log, now: time.Now}
}

func (s *FileService) GenerateUploadURL(ctx context.Context, contentType string) (*UploadURL, error) {
	if s.blobs == nil {
		return nil, common.ErrorStorageDisabled
	}
	key, url, err := s.blobs.PresignUpload(ctx, contentType)
	if err != nil {
		return nil, err
	}
	return &UploadURL{UploadURL: url, StorageID: key}, nil
}

func (s *FileService) URL(ctx context.Context, storageID string) (string, error) {
	if s.blobs == nil {
		return "", common.ErrorStorageDisabled
	}
	return s.blobs.PresignDownload(ctx, storageID)
}

// CheckUploadLimit counts the user's uploads since UTC midnight.
func (s *FileService) CheckUploadLimit(ctx context.Context, userID string) (UploadLimit, error) {
	since := common.StartOfUTCDay(s.now()).UnixMilli()
	n, err := s.store.CountUploadsSince(ctx, userID, since)
	if err != nil {
		return UploadLimit{}, err
	}
	return UploadLimit{
		Count:     n,
		Limit:     common.DailyFileUploadLimit,
		CanUpload: n < common.DailyFileUploadLimit,
	}, nil
}

// SaveAttachment records an uploaded file against a chat the user owns.
func (s *FileService) SaveAttachment(ctx context.Context, userID string, in SaveAttachmentInput) (*store.Attachment, error) {
	if s.blobs == nil {
		return nil, common.ErrorStorageDisabled
	}
	if in.ChatID == "" || in.StorageID == "" {
		return nil, common.NewValidationError("chatId and storageId are required")
	}
	if err := ValidateFile(in.FileType, in.FileSize); err != nil {
		return nil, err
	}
	if _, err := s.chats.owned(ctx, userID, in.ChatID); err != nil {
		return nil, err
	}

	limit, err := s.CheckUploadLimit(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !limit.CanUpload {
		return nil, &common.UploadLimitError{Limit: limit.Limit}
	}

	url, err := s.blobs.PresignDownload(ctx, in.StorageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file URL: %w", err)
	}
	a := &store.Attachment{
		ChatID:    in.ChatID,
		UserID:    userID,
		StorageID: in.StorageID,
		FileURL:   url,
		FileName:  in.FileName,
		FileType:  in.FileType,
		FileSize:  in.FileSize,
	}
	if err := s.store.CreateAttachment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAttachment removes the row and then the blob. Only the uploader may
// delete.
func (s *FileService) DeleteAttachment(ctx context.Context, userID, attachmentID string) error {
	a, err := s.store.GetAttachment(ctx, attachmentID)
	if err != nil {
		return err
	}
	if a.UserID != userID {
		return common.ErrorForbidden
	}
	if err := s.store.DeleteAttachment(ctx, attachmentID); err != nil {
		return err
	}
	deleteBlobs(ctx, s.blobs, s.log, []string{a.StorageID})
	return nil
}

func (s *FileService) ListForChat(ctx context.Context, userID, chatID string) ([]store.Attachment, error) {
	if _, err := s.chats.Get(ctx, userID, chatID); err != nil {
		return nil, err
	}
	return s.store.ListAttachments(ctx, chatID)
}
