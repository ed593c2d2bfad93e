package config

import (
	"github.com/pingcap/errors"

	"github.com/tidb-incubator/ferry/pkg/util/logutil"
)

const (
	DefaultCharSet       = "utf8mb4"
	DefaultWorkerNum     = 4
	DefaultNumShardGroup = 4
)

// Client is the per-service MySQL client configuration. Unknown keys in the
// YAML source are ignored.
type Client struct {
	UserName       string `yaml:"user_name"`
	Password       string `yaml:"password"`
	DBName         string `yaml:"dbname"`
	CharSet        string `yaml:"char_set"`
	WorkerNum      int    `yaml:"thread_num"`
	WorkerBindCore string `yaml:"thread_bind_core"`
	NumShardGroup  int    `yaml:"num_shard_group"`

	Log logutil.Config `yaml:"log"`

	AdminServer AdminServer `yaml:"admin_server"`
}

// AdminServer exposes metrics, pprof and pool stats over HTTP when Addr is
// set.
type AdminServer struct {
	Addr            string `yaml:"addr"`
	EnableBasicAuth bool   `yaml:"enable_basic_auth"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
}

// Service carries the surrounding service-proxy option block: target
// selection and pool bounds.
type Service struct {
	Name string `yaml:"name"`
	// Target is "host:port"; it is the fallback endpoint for contexts whose
	// target is unset.
	Target string `yaml:"target"`
	// MaxConnNum bounds the live connections one endpoint pool keeps idle on
	// reclaim; acquisition is not limited by it.
	MaxConnNum uint32 `yaml:"max_conn_num"`
	// IdleTimeMs evicts pooled connections idle longer than this; 0 disables.
	IdleTimeMs uint64 `yaml:"idle_time"`
	// TimeoutMs is the default call deadline; 0 disables.
	TimeoutMs uint64 `yaml:"timeout"`

	Mysql Client `yaml:"mysql"`
}

// FillDefault applies the documented defaults in place.
func (c *Client) FillDefault() {
	if c.CharSet == "" {
		c.CharSet = DefaultCharSet
	}
	if c.WorkerNum <= 0 {
		c.WorkerNum = DefaultWorkerNum
	}
	if c.NumShardGroup <= 0 {
		c.NumShardGroup = DefaultNumShardGroup
	}
}

// Check validates mandatory fields after defaults have been applied.
func (c *Client) Check() error {
	if c.UserName == "" {
		return errors.New("mysql client config: user_name is required")
	}
	return nil
}
