package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/vango-dev/errpage/pkg/errinfo"
	"github.com/vango-dev/errpage/pkg/ssr"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	inputs  []*s3.PutObjectInput
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[aws.ToString(in.Key)] = body
	f.inputs = append(f.inputs, in)
	return &s3.PutObjectOutput{}, nil
}

func quietLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, nil))
}

func TestStore(t *testing.T) {
	client := &fakeS3{}
	a := New(client, "incidents", "errpage", quietLogger(&bytes.Buffer{}))

	inc := Incident{
		ID:      "abc",
		Time:    time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		Message: "layout exploded",
		Stack:   "Error: layout exploded",
	}
	key, err := a.Store(context.Background(), inc)
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if key != "errpage/2026/03/04/abc.json" {
		t.Errorf("key = %q", key)
	}

	in := client.inputs[0]
	if aws.ToString(in.Bucket) != "incidents" || aws.ToString(in.ContentType) != "application/json" {
		t.Errorf("bucket/content type = %s/%s", aws.ToString(in.Bucket), aws.ToString(in.ContentType))
	}
	var stored Incident
	if err := json.Unmarshal(client.objects[key], &stored); err != nil {
		t.Fatalf("stored body is not JSON: %v", err)
	}
	if stored.Message != "layout exploded" || stored.ID != "abc" {
		t.Errorf("stored = %+v", stored)
	}
}

func TestStore_Error(t *testing.T) {
	a := New(&fakeS3{err: errors.New("access denied")}, "b", "", nil)
	_, err := a.Store(context.Background(), Incident{ID: "x"})
	if err == nil || !strings.Contains(err.Error(), "access denied") {
		t.Fatalf("err = %v", err)
	}
}

func TestHandler_UploadsInBackground(t *testing.T) {
	client := &fakeS3{}
	a := New(client, "incidents", "reports", quietLogger(&bytes.Buffer{}))
	a.now = func() time.Time { return time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC) }

	a.Handler()(
		&errinfo.Structured{Message: "boom", Stack: "Error: boom"},
		&ssr.Request{Method: "GET", URL: &url.URL{Path: "/boom"}},
	)
	a.Wait()

	if len(client.objects) != 1 {
		t.Fatalf("stored %d objects, want 1", len(client.objects))
	}
	for key, body := range client.objects {
		if !strings.HasPrefix(key, "reports/2026/10/19/") {
			t.Errorf("key = %q", key)
		}
		var inc Incident
		if err := json.Unmarshal(body, &inc); err != nil {
			t.Fatalf("body: %v", err)
		}
		if inc.Path != "/boom" || inc.Method != "GET" || inc.ID == "" {
			t.Errorf("incident = %+v", inc)
		}
	}
}

func TestHandler_LogsUploadFailure(t *testing.T) {
	var logs bytes.Buffer
	a := New(&fakeS3{err: errors.New("throttled")}, "b", "", quietLogger(&logs))

	a.Handler()(&errinfo.Structured{Message: "boom"}, nil)
	a.Wait()

	if !strings.Contains(logs.String(), "incident upload failed") {
		t.Errorf("logs = %q", logs.String())
	}
}

// isolateAWS points the default config chain at files under a temp dir.
func isolateAWS(t *testing.T, configFile, credentialsFile string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config")
	credsPath := filepath.Join(dir, "credentials")
	if err := os.WriteFile(cfgPath, []byte(configFile), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(credsPath, []byte(credentialsFile), 0o600); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{
		"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_SESSION_TOKEN",
		"AWS_REGION", "AWS_DEFAULT_REGION", "AWS_ROLE_ARN", "AWS_WEB_IDENTITY_TOKEN_FILE",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("AWS_CONFIG_FILE", cfgPath)
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", credsPath)
	t.Setenv("AWS_PROFILE", "incidents")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
}

func TestNewS3Client_SharedProfile(t *testing.T) {
	isolateAWS(t,
		"[profile incidents]\nregion = ap-southeast-2\n",
		"[incidents]\naws_access_key_id = AKIDPROFILE\naws_secret_access_key = profile-secret\n",
	)

	c, err := NewS3Client(context.Background(), "", "")
	if err != nil {
		t.Fatalf("NewS3Client: %v", err)
	}
	opts := c.Options()
	if opts.Region != "ap-southeast-2" {
		t.Errorf("Region = %q, want profile region", opts.Region)
	}
	if opts.UsePathStyle {
		t.Error("UsePathStyle set without an endpoint")
	}
	creds, err := opts.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if creds.AccessKeyID != "AKIDPROFILE" {
		t.Errorf("AccessKeyID = %q, want the shared profile key", creds.AccessKeyID)
	}
}

func TestNewS3Client_Overrides(t *testing.T) {
	isolateAWS(t, "[profile incidents]\nregion = ap-southeast-2\n", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIDENV")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "env-secret")

	c, err := NewS3Client(context.Background(), "eu-west-1", "http://localhost:9000")
	if err != nil {
		t.Fatalf("NewS3Client: %v", err)
	}
	opts := c.Options()
	if opts.Region != "eu-west-1" {
		t.Errorf("Region = %q, want eu-west-1", opts.Region)
	}
	if !opts.UsePathStyle || aws.ToString(opts.BaseEndpoint) != "http://localhost:9000" {
		t.Errorf("endpoint options = %v %q", opts.UsePathStyle, aws.ToString(opts.BaseEndpoint))
	}
	creds, err := opts.Credentials.Retrieve(context.Background())
	if err != nil || creds.AccessKeyID != "AKIDENV" {
		t.Fatalf("creds = %+v, err = %v", creds, err)
	}
}
