// Package filemap lists directory trees in a stable, human-friendly order.
//
// Folders come before files at every level and each group is sorted
// naturally ("img2" before "img10") without regard to case.
package filemap

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

// Map 递归列出 root 下的文件，返回以 "/" 分隔的相对路径。
// 目录不存在或没有任何条目时返回 false，与"存在但为空"的空切片区分开。
func Map(root string) ([]string, bool) {
	entries, err := os.ReadDir(root)
	if err != nil || len(entries) == 0 {
		return nil, false
	}

	var folders, files []string
	for _, entry := range entries {
		info, err := os.Stat(filepath.Join(root, entry.Name()))
		if err != nil {
			continue
		}
		switch {
		case info.IsDir():
			folders = append(folders, entry.Name())
		case info.Mode().IsRegular():
			files = append(files, entry.Name())
		}
	}
	if len(folders) == 0 && len(files) == 0 {
		return nil, false
	}

	sortNatural(folders)
	sortNatural(files)

	out := make([]string, 0, len(folders)+len(files))
	for _, folder := range folders {
		children, ok := Map(filepath.Join(root, folder))
		if !ok {
			continue
		}
		for _, child := range children {
			out = append(out, path.Join(folder, child))
		}
	}
	return append(out, files...), true
}

// Dirs 返回 root 的直接子目录（自然排序），用于按目录注册的资源类别。
func Dirs(root string) ([]string, bool) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, false
	}
	var dirs []string
	for _, entry := range entries {
		info, err := os.Stat(filepath.Join(root, entry.Name()))
		if err != nil || !info.IsDir() {
			continue
		}
		dirs = append(dirs, entry.Name())
	}
	if len(dirs) == 0 {
		return nil, false
	}
	sortNatural(dirs)
	return dirs, true
}

func sortNatural(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return Less(names[i], names[j])
	})
}

// Less 按自然顺序比较两个名称：数字串按数值比较，其余字符忽略大小写。
// 完全相等（忽略大小写）时回退到字节序，保证结果确定。
func Less(a, b string) bool {
	if c := compareNatural(a, b); c != 0 {
		return c < 0
	}
	return a < b
}

func compareNatural(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	i, j := 0, 0
	for i < len(ra) && j < len(rb) {
		if isDigit(ra[i]) && isDigit(rb[j]) {
			si := i
			for i < len(ra) && isDigit(ra[i]) {
				i++
			}
			sj := j
			for j < len(rb) && isDigit(rb[j]) {
				j++
			}
			if c := compareDigits(string(ra[si:i]), string(rb[sj:j])); c != 0 {
				return c
			}
			continue
		}
		ca, cb := unicode.ToLower(ra[i]), unicode.ToLower(rb[j])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		i++
		j++
	}
	switch {
	case len(ra)-i < len(rb)-j:
		return -1
	case len(ra)-i > len(rb)-j:
		return 1
	}
	return 0
}

// compareDigits 比较两段十进制数字，前导零不影响数值大小。
func compareDigits(a, b string) int {
	ta, tb := strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
	if len(ta) != len(tb) {
		if len(ta) < len(tb) {
			return -1
		}
		return 1
	}
	if c := strings.Compare(ta, tb); c != 0 {
		return c
	}
	// 数值相同时前导零更少的排前面
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
