// Package config provides configuration loading for errpage.
//
// The configuration is stored in errpage.json at the project root;
// errpage.yaml, errpage.yml and errpage.toml are accepted as well.
// ERRPAGE_* environment variables override file values.
//
// # Configuration File Structure
//
//	{
//	  "mode": "development",
//	  "addr": "localhost:3000",
//	  "render": {
//	    "hydrate": true,
//	    "router": true,
//	    "prerender": false,
//	    "clientScript": "/_errpage/client.js",
//	    "lang": "en",
//	    "styleSheets": ["error.css"],
//	    "assetManifest": "dist/manifest.json",
//	    "assetPrefix": "/public/",
//	    "assetDir": "dist"
//	  },
//	  "fallback": { "redact": false },
//	  "overlay": { "enabled": true, "path": "/_errpage/overlay" },
//	  "metrics": { "enabled": true, "path": "/metrics", "namespace": "errpage" },
//	  "tracing": { "enabled": false, "name": "errpage" },
//	  "archive": {
//	    "enabled": false,
//	    "bucket": "incidents",
//	    "prefix": "errpage",
//	    "region": "us-east-1"
//	  }
//	}
//
// In production mode the fallback body is always redacted and the
// overlay is disabled, whatever the file says.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	opts := cfg.Options(manifest, handler)
package config
