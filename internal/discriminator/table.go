package discriminator

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/zeromicro/go-zero/core/jsonx"
	"gopkg.in/yaml.v3"
)

// Table 同时保存正向（方法名 → hex discriminator）与反向（hex → 方法名）映射。
//
// 注意：反向映射由正向映射逐条反转得到，若两个方法名 discriminator 冲突，
// 后写入的方法名覆盖前者（last-write-wins）。8 字节输出冲突概率极低，调用方不应依赖该行为。
type Table struct {
	FuncDisc map[string]string `json:"func_disc"`
	DiscFunc map[string]string `json:"disc_func"`
}

func newTable(capacity int) Table {
	return Table{
		FuncDisc: make(map[string]string, capacity),
		DiscFunc: make(map[string]string, capacity),
	}
}

func (t Table) add(name, disc string) {
	t.FuncDisc[name] = disc
	t.DiscFunc[disc] = name
}

// Lookup 反查 hex discriminator 对应的方法名
func (t Table) Lookup(disc string) (string, bool) {
	name, ok := t.DiscFunc[strings.ToLower(disc)]
	return name, ok
}

// Build 为一组方法名计算 discriminator
func Build(scope string, names []string) Table {
	t := newTable(len(names))
	for _, name := range names {
		t.add(name, Of(scope, name).Hex())
	}
	return t
}

// ProgramMethods 描述一个 Program 的方法列表：
//   - NumBytes == 8：Anchor 程序，discriminator 由方法名计算；
//   - 其他：每项形如 "<方法名> <hex discriminator>"，原样登记。
type ProgramMethods struct {
	NumBytes int      `yaml:"num_bytes" json:"num_bytes"`
	Scope    string   `yaml:"scope,omitempty" json:"scope,omitempty"`
	Methods  []string `yaml:"methods" json:"methods"`
}

// Document 是 program 名 → Table 的集合，可持久化为 JSON
type Document map[string]Table

// BuildDocument 根据方法清单构建全部 Program 的 Table
func BuildDocument(programs map[string]ProgramMethods) (Document, error) {
	doc := make(Document, len(programs))

	names := make([]string, 0, len(programs))
	for name := range programs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, prog := range names {
		info := programs[prog]
		if info.NumBytes == Size {
			scope := info.Scope
			if scope == "" {
				scope = ScopeGlobal
			}
			doc[prog] = Build(scope, info.Methods)
			continue
		}

		t := newTable(len(info.Methods))
		for _, m := range info.Methods {
			parts := strings.Fields(m)
			if len(parts) != 2 {
				return nil, fmt.Errorf("program %s: method entry %q must be \"<name> <disc>\"", prog, m)
			}
			t.add(parts[0], strings.ToLower(parts[1]))
		}
		doc[prog] = t
	}
	return doc, nil
}

// LoadProgramMethods 读取 YAML 格式的方法清单
func LoadProgramMethods(path string) (map[string]ProgramMethods, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	programs := make(map[string]ProgramMethods)
	if err := yaml.Unmarshal(data, &programs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return programs, nil
}

// WriteFile 将 Document 以 JSON 写入文件
func (d Document) WriteFile(path string) error {
	data, err := jsonx.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal discriminator document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadDocument 读取 WriteFile 产出的 JSON 文件
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc Document
	if err := jsonx.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}
