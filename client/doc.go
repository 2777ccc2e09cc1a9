// Package client talks to a docvault server over HTTP.
//
// Requests are presigned with AWS Signature V4 when the config carries an
// access key pair, and sent as plain requests otherwise. Transport errors and
// 5xx responses are retried with exponential backoff.
//
// # Basic Usage
//
//	c, err := client.New(&client.Config{
//		Endpoint:  "http://localhost:8000",
//		AccessKey: "your-access-key",
//		SecretKey: "your-secret-key",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := c.Upload(ctx, client.UploadOptions{LocalPath: "./report.docx"})
//
// # Profile Configuration
//
// Profiles keep connection settings for several servers in one file:
//
//	configFile, err := client.LoadConfigFile(client.DefaultConfigPath())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	profile, err := configFile.GetProfile("production")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	c, err := client.New(client.ConfigFromProfile(profile))
//
// # Errors
//
// Non-success responses are returned as *APIError. Compare against the
// sentinels with errors.Is:
//
//	if errors.Is(err, client.ErrNotFound) {
//		...
//	}
package client
