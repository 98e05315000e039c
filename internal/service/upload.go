package service

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/haatos/nightly/internal/settings"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Uploader copies release artifacts to a remote host over SFTP. Upload
// failures never affect the run's success flag; the artifact already sits in
// the output directory.
type Uploader struct {
	host       string
	username   string
	privateKey []byte
	remoteDir  string

	client *ssh.Client
	mu     sync.Mutex
}

func NewUploader(cfg *settings.UploadConfig) (*Uploader, error) {
	key, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("err reading upload private key: %w", err)
	}
	host := cfg.Host
	if !strings.Contains(host, ":") {
		host += ":22"
	}
	return &Uploader{
		host:       host,
		username:   cfg.Username,
		privateKey: key,
		remoteDir:  cfg.RemoteDir,
	}, nil
}

func (u *Uploader) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.client == nil {
		return nil
	}
	err := u.client.Close()
	u.client = nil
	return err
}

// Upload copies the local file into the configured remote directory and
// returns the remote path.
func (u *Uploader) Upload(localPath string) (string, error) {
	if err := u.connect(); err != nil {
		return "", err
	}

	sftpClient, err := sftp.NewClient(u.client)
	if err != nil {
		return "", fmt.Errorf("err creating sftp client: %w", err)
	}
	defer sftpClient.Close()

	if u.remoteDir != "" {
		if err := sftpClient.MkdirAll(u.remoteDir); err != nil {
			return "", fmt.Errorf("err creating remote dir: %w", err)
		}
	}
	remotePath := path.Join(u.remoteDir, path.Base(localPath))

	local, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer local.Close()

	remote, err := sftpClient.Create(remotePath)
	if err != nil {
		return "", fmt.Errorf("err creating remote file: %w", err)
	}
	defer remote.Close()

	if _, err := io.Copy(remote, local); err != nil {
		return "", fmt.Errorf("err copying to remote file: %w", err)
	}
	return remotePath, nil
}

func (u *Uploader) connect() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.client != nil {
		return nil
	}

	signer, err := ssh.ParsePrivateKey(u.privateKey)
	if err != nil {
		return fmt.Errorf("err parsing upload private key: %w", err)
	}
	config := &ssh.ClientConfig{
		User:            u.username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}

	client, err := ssh.Dial("tcp", u.host, config)
	if err != nil {
		return err
	}
	u.client = client
	return nil
}
