package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// CacheFields 描述一次缓存存储操作，namespace 为空表示根条目。
func CacheFields(action, namespace, key string) logrus.Fields {
	fields := logrus.Fields{
		"action":    action,
		"namespace": namespace,
	}
	if namespace == "" {
		fields["namespace"] = "root"
	}
	if key != "" {
		fields["key"] = key
	}
	return fields
}

// RenderFields 提供片段渲染日志字段，status 取值 hit/miss/bypass/not_found。
func RenderFields(namespace, name, key, status string) logrus.Fields {
	return logrus.Fields{
		"namespace":   namespace,
		"name":        name,
		"key":         key,
		"cache_state": status,
	}
}
