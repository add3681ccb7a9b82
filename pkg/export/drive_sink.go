package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/tiffintracker/tiffin/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DriveSink uploads exports to a Google Drive folder.
type DriveSink struct {
	service  *drive.Service
	folderId string
}

// NewDriveSink authorizes with the OAuth client from cfg and the token stored in
// cfg.TokenFile. The token must have been obtained beforehand with the drive.file scope.
func NewDriveSink(ctx context.Context, cfg config.Google, folderId string) (*DriveSink, error) {
	token, err := loadToken(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read Google token from %s: %w", cfg.TokenFile, err)
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientId,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}
	client := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, token))

	service, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive client: %w", err)
	}
	return NewDriveSinkWithService(service, folderId), nil
}

func NewDriveSinkWithService(service *drive.Service, folderId string) *DriveSink {
	return &DriveSink{service: service, folderId: folderId}
}

func (s *DriveSink) Deliver(ctx context.Context, filename string, contentType string, content []byte) error {
	file := &drive.File{
		Name:     filename,
		MimeType: contentType,
	}
	if s.folderId != "" {
		file.Parents = []string{s.folderId}
	}

	created, err := s.service.Files.Create(file).
		Media(bytes.NewReader(content), googleapi.ContentType(contentType)).
		Fields("id", "name").
		Context(ctx).
		Do()
	if err != nil {
		err := fmt.Errorf("%w: unable to upload %s to Google Drive: %v", ErrSinkUnavailable, filename, err)
		log.Error(err)
		return err
	}
	log.Infof("uploaded %s to Google Drive as %s", filename, created.Id)
	return nil
}

func (s *DriveSink) Name() string {
	if s.folderId == "" {
		return "drive"
	}
	return "drive:" + s.folderId
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	token := &oauth2.Token{}
	if err := json.Unmarshal(data, token); err != nil {
		return nil, err
	}
	return token, nil
}
