/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package config loads dlog's external configuration surface: the
// performance/output/security option tree, the sink list, and the
// credential environment variables cloud sinks consult.
//
// Loading is layered with viper: built-in defaults, an optional config
// file (yaml/json/toml, auto-detected by extension), then environment
// variables, which take precedence. A ".env" file, if present, is loaded
// with godotenv before viper reads the environment so that local
// development doesn't require exporting variables by hand.
package config
