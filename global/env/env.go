/*
 * Copyright 2024 caiflower Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package env

import (
	"net"
	"os"
	"sync"
)

const defaultConfigPath = "./etc"

var (
	ConfigPath = initConfigPath()

	localhostIP     string
	localhostIPOnce sync.Once
)

func initConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return defaultConfigPath
}

func SetDefaultConfigPath(path string) {
	ConfigPath = path
}

// GetLocalHostIP returns the first non-loopback IPv4 address of this host, or
// "127.0.0.1" when none can be found.
func GetLocalHostIP() string {
	localhostIPOnce.Do(func() {
		localhostIP = findLocalHostIP()
	})
	return localhostIP
}

func findLocalHostIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, address := range addrs {
		// 跳过回环地址
		if ipnet, ok := address.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			return ipnet.IP.String()
		}
	}
	return "127.0.0.1"
}
