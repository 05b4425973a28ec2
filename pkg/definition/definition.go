// Package definition 渲染外部编排器使用的定义文档
//
// 文档由若干属性组成，单值属性渲染为 KEY = "value"，
// 向量属性渲染为 KEY = [ A = "1", B = "2" ]。键统一转为大写。
//
//	doc := definition.New().
//	    Set("NAME", "net1").
//	    Set("TYPE", "FIXED").
//	    Vector("LEASES", definition.P("IP", "10.0.0.2"))
//	text, err := doc.Render()
package definition

import (
	"fmt"
	"regexp"
	"strings"
)

var keyPattern = regexp.MustCompile(`^[A-Z0-9_]+$`)

// reservedValueChars 值中不允许出现的字符
const reservedValueChars = "\"\n\r"

// Pair 向量中的一个键值对
type Pair struct {
	Key   string
	Value string
}

// P 创建键值对
func P(key, value string) Pair {
	return Pair{Key: key, Value: value}
}

type attribute struct {
	key    string
	value  string
	vector []Pair
	isVec  bool
}

// Document 定义文档
type Document struct {
	attrs []attribute
}

// New 创建空文档
func New() *Document {
	return &Document{}
}

// Set 追加单值属性
func (d *Document) Set(key, value string) *Document {
	d.attrs = append(d.attrs, attribute{key: key, value: value})
	return d
}

// Setf 追加格式化的单值属性
func (d *Document) Setf(key, format string, args ...any) *Document {
	return d.Set(key, fmt.Sprintf(format, args...))
}

// Vector 追加向量属性，同名向量可以出现多次（例如多个 DISK、NIC）
func (d *Document) Vector(key string, pairs ...Pair) *Document {
	d.attrs = append(d.attrs, attribute{key: key, vector: pairs, isVec: true})
	return d
}

// Len 属性数量
func (d *Document) Len() int {
	return len(d.attrs)
}

// Render 渲染文档，键或值非法时返回错误
func (d *Document) Render() (string, error) {
	var b strings.Builder
	for _, a := range d.attrs {
		key, err := normalizeKey(a.key)
		if err != nil {
			return "", err
		}

		if !a.isVec {
			if err := checkValue(key, a.value); err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "%s = \"%s\"\n", key, a.value)
			continue
		}

		parts := make([]string, 0, len(a.vector))
		for _, p := range a.vector {
			pk, err := normalizeKey(p.Key)
			if err != nil {
				return "", err
			}
			if err := checkValue(key+"/"+pk, p.Value); err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("%s = \"%s\"", pk, p.Value))
		}
		fmt.Fprintf(&b, "%s = [ %s ]\n", key, strings.Join(parts, ", "))
	}
	return b.String(), nil
}

// MustRender 同 Render，出错时 panic，只用于常量文档
func (d *Document) MustRender() string {
	s, err := d.Render()
	if err != nil {
		panic(err)
	}
	return s
}

func normalizeKey(key string) (string, error) {
	k := strings.ToUpper(strings.TrimSpace(key))
	if !keyPattern.MatchString(k) {
		return "", fmt.Errorf("invalid attribute name %q", key)
	}
	return k, nil
}

func checkValue(key, value string) error {
	if strings.ContainsAny(value, reservedValueChars) {
		return fmt.Errorf("attribute %s contains a reserved character: %q", key, value)
	}
	return nil
}
