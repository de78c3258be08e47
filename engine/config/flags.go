package config

import (
	"flag"
	"strings"
)

// BindFlags registers command line flags on fs that write straight into c.
// Call it after Load so the flag defaults show the file values and parsed flags win.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Loader.Workers, "workers", c.Loader.Workers, "number of load workers")
	fs.Var(extensionList{&c.Loader.Extensions}, "extensions", "comma separated list of supported glTF extensions")

	fs.StringVar(&c.Mesh.Normals, "normals", c.Mesh.Normals, "normal generation: if_missing, always, never")
	fs.StringVar(&c.Mesh.Tangents, "tangents", c.Mesh.Tangents, "tangent generation: if_missing, always, never")
	fs.BoolVar(&c.Mesh.ReverseWinding, "reverse-winding", c.Mesh.ReverseWinding, "flip triangle winding")
	fs.BoolVar(&c.Mesh.ReverseTangents, "reverse-tangents", c.Mesh.ReverseTangents, "flip tangent handedness")
	fs.StringVar(&c.Mesh.Pivot, "pivot", c.Mesh.Pivot, "mesh pivot: asset, center, top, bottom")
	fs.StringVar(&c.Mesh.PivotSocket, "pivot-socket", c.Mesh.PivotSocket, "socket name recording the source origin after a pivot")

	fs.IntVar(&c.Skin.MaxInfluences, "max-influences", c.Skin.MaxInfluences, "maximum bone influences per vertex")

	fs.Var(&c.Fetch.Timeout, "fetch-timeout", "timeout of one external fetch")
	fs.IntVar(&c.Fetch.Retries, "fetch-retries", c.Fetch.Retries, "retries after a failed fetch")

	fs.StringVar(&c.Logging.Level, "log-level", c.Logging.Level, "log level: debug, info, warn, error")
	fs.StringVar(&c.Logging.File, "log-file", c.Logging.File, "log file path")
}

type extensionList struct {
	list *[]string
}

func (e extensionList) String() string {
	if e.list == nil {
		return ""
	}
	return strings.Join(*e.list, ",")
}

func (e extensionList) Set(s string) error {
	*e.list = nil
	for _, ext := range strings.Split(s, ",") {
		if ext = strings.TrimSpace(ext); ext != "" {
			*e.list = append(*e.list, ext)
		}
	}
	return nil
}
