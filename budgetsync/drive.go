package budgetsync

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/joaocorreiaageplan-lgtm/construcost-ai-app/models"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// driveClient lists quote PDFs in the shared Drive folder through the Drive
// v3 API. The folder is public, so an API key is enough; no OAuth flow.
type driveClient struct {
	folderID string
	apiKey   string
}

func NewFileSource(cfg Config) FileSource {
	return &driveClient{
		folderID: cfg.DriveFolderID,
		apiKey:   cfg.GoogleAPIKey,
	}
}

var _ FileSource = (*driveClient)(nil)

func (c *driveClient) service(ctx context.Context) (*drive.Service, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("google api key is not configured")
	}
	return drive.NewService(ctx, option.WithAPIKey(c.apiKey))
}

func (c *driveClient) ListFiles(ctx context.Context) ([]DriveFile, error) {
	if c.folderID == "" {
		return nil, fmt.Errorf("drive folder id is not configured")
	}
	svc, err := c.service(ctx)
	if err != nil {
		return nil, err
	}

	var files []DriveFile
	pageToken := ""
	for {
		call := svc.Files.List().
			Q(fmt.Sprintf("'%s' in parents and mimeType='application/pdf' and trashed=false", c.folderID)).
			Fields("nextPageToken, files(id, name, mimeType, webViewLink, modifiedTime)").
			PageSize(1000).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return nil, err
		}
		for _, f := range page.Files {
			files = append(files, DriveFile{
				ID:           f.Id,
				Name:         f.Name,
				MimeType:     f.MimeType,
				WebViewLink:  f.WebViewLink,
				ModifiedTime: f.ModifiedTime,
			})
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	return files, nil
}

func (c *driveClient) Download(ctx context.Context, fileID string) ([]byte, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// Revision markers seen in the wild: "rev01", "rev.02", "rev 3", "v3", "_r2".
// Tried in order; first pattern that matches wins.
var revisionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)rev[\s._-]?(\d+)`),
	regexp.MustCompile(`(?i)v(\d+)`),
	regexp.MustCompile(`(?i)_r(\d+)`),
}

// ExtractRevisionNumber pulls the revision number out of a file name.
// Files without a marker count as revision 0.
func ExtractRevisionNumber(name string) int {
	for _, p := range revisionPatterns {
		if m := p.FindStringSubmatch(name); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			return n
		}
	}
	return 0
}

// LatestRevisionPerPR reduces a raw file listing to one representative file
// per PR code: the highest revision wins, ties break to the first file seen
// (source order is not guaranteed stable — accepted nondeterminism). Files
// whose name yields no PR code cannot be reconciled against the ledger and
// are dropped entirely.
func LatestRevisionPerPR(files []DriveFile) []DriveFile {
	var result []DriveFile
	index := map[string]int{}

	for _, f := range files {
		f.PRCode = models.ExtractPRCode(f.Name)
		if f.PRCode == "" {
			continue
		}
		f.Revision = ExtractRevisionNumber(f.Name)

		if i, seen := index[f.PRCode]; seen {
			if f.Revision > result[i].Revision {
				result[i] = f
			}
			continue
		}
		index[f.PRCode] = len(result)
		result = append(result, f)
	}

	return result
}
